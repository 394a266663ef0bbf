package handler

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"rank-annotation-backend/domain/session"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/server/common"
	"rank-annotation-backend/utils"
)

/*
CreateSession 创建一个会话并加载第一个批次。加载失败时会话仍然保留，可以调用 reload 重试。
*/
func CreateSession(ctx *gin.Context) {
	s := deps.Registry.Create()

	if err := s.Load(ctx.Request.Context()); err != nil {
		logging.Default().WithError(err).Errorf("load batch for new session [%s] fail", s.ID())
		status, resp := errorResp(err)
		resp.Data = s.View()
		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.View()))
}

func findSession(ctx *gin.Context) (*session.Session, bool) {
	id := ctx.Param("id")
	s, ok := deps.Registry.Get(id)
	if !ok {
		ctx.JSON(http.StatusNotFound, common.MakeErrorResp(common.CodeNotFound, "session not found"))
		return nil, false
	}
	return s, true
}

func GetSession(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.View()))
}

func ReloadSession(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	if err := s.Load(ctx.Request.Context()); err != nil {
		logging.Default().WithError(err).Errorf("reload session [%s] fail", s.ID())
		status, resp := errorResp(err)
		resp.Data = s.View()
		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.View()))
}

type reorderReq struct {
	SentenceID string `json:"sentenceId" binding:"required"`
	From       *int   `json:"from" binding:"required"`
	To         *int   `json:"to" binding:"required"`
}

func Reorder(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	var req reorderReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		err = utils.WrapError(err, "bind req fail")
		logging.Default().WithError(err).Errorf("parse req error: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, common.MakeErrorResp(common.CodeBadRequest, err.Error()))
		return
	}

	if err := s.Reorder(req.SentenceID, *req.From, *req.To); err != nil {
		ctx.JSON(errorResp(err))
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.View()))
}

type commentReq struct {
	SentenceID string `json:"sentenceId" binding:"required"`
	Text       string `json:"text"`
}

func SetComment(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	var req commentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		err = utils.WrapError(err, "bind req fail")
		logging.Default().WithError(err).Errorf("parse req error: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, common.MakeErrorResp(common.CodeBadRequest, err.Error()))
		return
	}

	if err := s.SetComment(req.SentenceID, req.Text); err != nil {
		ctx.JSON(errorResp(err))
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.View()))
}

func CanSubmit(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(s.Check()))
}

/*
Submit 提交会话中所有待提交的句子。部分失败时返回 200，由 success 字段区分。
*/
func Submit(ctx *gin.Context) {
	s, ok := findSession(ctx)
	if !ok {
		return
	}

	report, err := s.Submit(ctx.Request.Context())
	if err != nil {
		logging.Default().WithError(err).Warnf("submit session [%s] fail", s.ID())
		status, resp := errorResp(err)
		resp.Data = s.View()
		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(report))
}
