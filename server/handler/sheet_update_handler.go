package handler

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/utils"
)

/*
UpdateSheet 是表格的写入端点，请求和响应使用 commit.UpdateRequest 和 commit.UpdateResponse，
不使用通用的响应格式。每条标注独立成功或失败。
*/
func UpdateSheet(ctx *gin.Context) {
	handler := updateSheetHandler{ctx: ctx}

	if err := handler.checkParam(); err != nil {
		logging.Default().WithError(err).Errorf("parse req error: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, &commit.UpdateResponse{
			Error:   "invalid request",
			Details: err.Error(),
		})
		return
	}

	resp, err := handler.produce()
	if err != nil {
		logging.Default().WithError(err).Errorf("produce error: %s", err.Error())
		ctx.JSON(http.StatusInternalServerError, &commit.UpdateResponse{
			Error:   "update sheet fail",
			Details: err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

type updateSheetHandler struct {
	ctx *gin.Context

	req *commit.UpdateRequest
}

func (h *updateSheetHandler) checkParam() error {
	var req commit.UpdateRequest
	if err := h.ctx.ShouldBindJSON(&req); err != nil {
		return utils.WrapError(err, "bind req fail")
	}

	if len(req.Annotations) == 0 {
		return utils.WrapError(errEmptyAnnotations, "check annotations fail")
	}

	h.req = &req
	return nil
}

func (h *updateSheetHandler) produce() (*commit.UpdateResponse, error) {
	results, err := deps.Coordinator.Commit(h.ctx.Request.Context(), h.req.Annotations)
	if err != nil {
		return nil, utils.WrapError(err, "commit annotations fail")
	}

	return &commit.UpdateResponse{
		Success: commit.AllSucceeded(results),
		Updates: results,
	}, nil
}
