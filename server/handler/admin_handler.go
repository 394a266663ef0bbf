package handler

import (
	"errors"
	"github.com/gin-gonic/gin"
	"io"
	"net/http"
	"rank-annotation-backend/domain/assign"
	"rank-annotation-backend/domain/sheet"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/repository/tablestore"
	"rank-annotation-backend/repository/xlsxsheet"
	"rank-annotation-backend/server/common"
	"rank-annotation-backend/utils"
	"strings"
)

var errEmptyAnnotations = errors.New("no annotation in request")

func GetProgress(ctx *gin.Context) {
	progress, err := deps.Loader.Progress(ctx.Request.Context())
	if err != nil {
		logging.Default().WithError(err).Errorf("GetProgress produce error: %s", err.Error())
		ctx.JSON(errorResp(err))
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(progress))
}

func Snapshot(ctx *gin.Context) {
	if deps.Archiver == nil {
		ctx.JSON(http.StatusNotImplemented, common.MakeErrorResp(common.CodeNotSupported, "snapshot storage not configured"))
		return
	}

	key, err := deps.Archiver.Archive(ctx.Request.Context(), deps.Store)
	if err != nil {
		logging.Default().WithError(err).Errorf("Snapshot produce error: %s", err.Error())
		ctx.JSON(http.StatusBadGateway, common.MakeErrorResp(common.CodeUpstreamFailure, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(gin.H{"key": key}))
}

/*
UploadSheet 用上传的 CSV 或 xlsx 文件替换当前表格，表头必须包含 id、原文和全部候选列。
*/
func UploadSheet(ctx *gin.Context) {
	handler := uploadSheetHandler{
		ctx: ctx,
	}

	if err := handler.checkParam(); err != nil {
		logging.Default().WithError(err).Errorf("parse req error: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, common.MakeErrorResp(common.CodeBadRequest, err.Error()))
		return
	}

	resp, err := handler.produce()
	if err != nil {
		logging.Default().WithError(err).Errorf("produce error: %s", err.Error())
		ctx.JSON(http.StatusInternalServerError, common.MakeUnknownErrorResp())
		return
	}

	ctx.JSON(http.StatusOK, common.MakeSuccessResp(resp))
}

type uploadSheetHandler struct {
	ctx *gin.Context

	// params
	fileName string
	table    *tablestore.Table
	importer tablestore.Importer
}

type uploadSheetResp struct {
	FileName string `json:"fileName"`
	Rows     int    `json:"rows"`
	Parsed   int    `json:"parsed"`
	Eligible int    `json:"eligible"`
}

func (h *uploadSheetHandler) checkParam() error {
	importer, ok := deps.Store.(tablestore.Importer)
	if !ok {
		return utils.WrapError(common.ErrImportNotSupported, "check sheet backend fail")
	}
	h.importer = importer

	contentType := h.ctx.GetHeader("Content-Type")
	if !strings.Contains(contentType, "multipart/form-data") {
		return utils.WrapErrorf(common.ErrContentTypeNotMultipartFormData,
			"actual Content-Type = [%s] not 'multipart/form-data'", contentType)
	}

	header, err := h.ctx.FormFile("file")
	if err != nil {
		return utils.WrapError(common.ErrRequestParamEmpty, "read multipart file fail")
	}

	file, err := header.Open()
	if err != nil {
		return utils.WrapError(err, "open multipart file fail")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return utils.WrapError(err, "read multipart file fail")
	}

	h.fileName = header.Filename
	lower := strings.ToLower(h.fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		h.table, err = tablestore.DecodeCSV(data)
	case strings.HasSuffix(lower, ".xlsx"):
		h.table, err = xlsxsheet.ReadTable(data)
	default:
		return utils.WrapErrorf(common.ErrUnsupportedFileType, "file [%s]", h.fileName)
	}
	if err != nil {
		return utils.WrapErrorf(err, "decode file [%s] fail", h.fileName)
	}

	if _, err := sheet.ResolveSchema(h.table.Header, deps.Sheet); err != nil {
		return utils.WrapError(err, "check header fail")
	}

	return nil
}

func (h *uploadSheetHandler) produce() (*uploadSheetResp, error) {
	records, err := sheet.ParseTable(h.table.Header, h.table.Rows, deps.Sheet)
	if err != nil {
		return nil, utils.WrapError(err, "parse table fail")
	}

	if err := h.importer.Import(h.ctx.Request.Context(), h.table); err != nil {
		return nil, utils.WrapError(err, "import table fail")
	}

	progress := assign.Summarize(records)
	logging.Default().Infof("import sheet from [%s] with %d rows, %d parsed", h.fileName, len(h.table.Rows), len(records))
	return &uploadSheetResp{
		FileName: h.fileName,
		Rows:     len(h.table.Rows),
		Parsed:   len(records),
		Eligible: progress.Total - progress.Finished,
	}, nil
}

func Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, common.MakeSuccessResp(gin.H{"status": "ok"}))
}
