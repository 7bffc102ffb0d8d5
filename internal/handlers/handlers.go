package handlers

import (
	"errors"

	"github.com/gcottom/go-zaplog"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bandcampdl/internal/services/session"
)

type Handlers struct {
	Sessions *session.Service
}

func SetupRoutes(router *gin.Engine, sessionService *session.Service) {
	handler := &Handlers{Sessions: sessionService}
	router.GET("/download", handler.StartDownload)
	router.GET("/status", handler.GetStatus)
	router.GET("/cancel", handler.Cancel)
}

func (h *Handlers) StartDownload(ctx *gin.Context) {
	url := ctx.Query("url")
	if url == "" {
		zaplog.WarnC(ctx, "start download request without URL present: URL is required")
		ResponseFailure(ctx, errors.New("start download request without URL present: URL is required"))
		return
	}
	zaplog.InfoC(ctx, "start download request received", zap.String("url", url))
	id, err := h.Sessions.InitiateDownload(ctx, url)
	if err != nil {
		zaplog.ErrorC(ctx, "error starting download", zap.Error(err))
		ResponseFailure(ctx, err)
		return
	}
	zaplog.InfoC(ctx, "start download request queued successfully", zap.String("id", id))
	ResponseSuccess(ctx, StartDownloadResponse{State: "ACK", ID: id})
}

func (h *Handlers) GetStatus(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		zaplog.WarnC(ctx, "get status request without ID present: ID is required")
		ResponseFailure(ctx, errors.New("get status request without ID present: ID is required"))
		return
	}
	status, err := h.Sessions.GetStatus(ctx, id)
	if err != nil {
		zaplog.ErrorC(ctx, "error getting status request", zap.String("id", id), zap.Error(err))
		ResponseFailure(ctx, err)
		return
	}
	ResponseSuccess(ctx, *status)
}

func (h *Handlers) Cancel(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		zaplog.WarnC(ctx, "cancel request without ID present: ID is required")
		ResponseFailure(ctx, errors.New("cancel request without ID present: ID is required"))
		return
	}
	zaplog.InfoC(ctx, "cancel request received", zap.String("id", id))
	if err := h.Sessions.Cancel(ctx, id); err != nil {
		zaplog.ErrorC(ctx, "error cancelling download", zap.String("id", id), zap.Error(err))
		ResponseInternalError(ctx, err)
		return
	}
	ResponseSuccess(ctx, StartDownloadResponse{State: "ACK", ID: id})
}
