package handler

import (
	"context"
	"errors"
	"net/http"
	"rank-annotation-backend/domain/assign"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/domain/fault"
	"rank-annotation-backend/domain/session"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/server/common"
)

type Archiver interface {
	Archive(ctx context.Context, store tablestore.Store) (string, error)
}

/*
Config 是处理函数依赖的组件。

	Registry 标注会话；
	Loader 读取表格并统计进度；
	Coordinator 写入端点使用的提交协调器；
	Store 表格存储，上传和快照使用；
	Archiver 快照上传，为 nil 时快照接口不可用；
	Sheet 表格结构约定；
*/
type Config struct {
	Registry    *session.Registry
	Loader      *assign.Loader
	Coordinator *commit.Coordinator
	Store       tablestore.Store
	Archiver    Archiver
	Sheet       *sheet.Config
}

var deps Config

func Init(config *Config) {
	deps = *config
}

/*
errorResp 把领域错误转换为 HTTP 状态码和响应。
*/
func errorResp(err error) (int, *common.Resp) {
	switch {
	case errors.Is(err, session.ErrUnknownSentence):
		return http.StatusNotFound, common.MakeErrorResp(common.CodeNotFound, err.Error())
	case errors.Is(err, session.ErrIndexOutOfRange):
		return http.StatusBadRequest, common.MakeErrorResp(common.CodeBadRequest, err.Error())
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrEntryNotEditable):
		return http.StatusConflict, common.MakeErrorResp(common.CodeConflict, err.Error())
	}

	switch fault.KindOf(err) {
	case fault.ValidationFailed, fault.PayloadShapeInvalid:
		return http.StatusUnprocessableEntity, common.MakeErrorResp(common.CodeValidation, err.Error())
	case fault.FetchFailed, fault.ParseFailed, fault.TransportFailed:
		return http.StatusBadGateway, common.MakeErrorResp(common.CodeUpstreamFailure, err.Error())
	}

	return http.StatusInternalServerError, common.MakeUnknownErrorResp()
}
