package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/airbrake-proxy/common/logger"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/service"
)

type NoticeHandler struct {
	service      service.NoticeService
	metrics      metrics.Sink
	maxBodyBytes int64
}

func NewNoticeHandler(service service.NoticeService, sink metrics.Sink, maxBodyBytes int64) *NoticeHandler {
	return &NoticeHandler{
		service:      service,
		metrics:      sink,
		maxBodyBytes: maxBodyBytes,
	}
}

// Handle serves every path: GET is a lookup, anything else is a submission.
func (h *NoticeHandler) Handle(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		h.Locate(c)
		return
	}
	h.Submit(c)
}

func (h *NoticeHandler) Locate(c *gin.Context) {
	ctx := c.Request.Context()

	location, err := h.service.Locate(ctx, c.Request.URL.Path)
	if err != nil {
		if !errors.Is(err, service.ErrNoticeNotFound) {
			slog.ErrorContext(ctx, "failed to look up notice", "error", err, "path", c.Request.URL.Path)
		}
		c.Status(http.StatusNotFound)
		return
	}

	c.Redirect(http.StatusSeeOther, location)
}

func (h *NoticeHandler) Submit(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "notice body too large", "limit", tooLarge.Limit)
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		slog.WarnContext(ctx, "failed to read notice body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	acceptance := h.service.Accept(ctx, c.Request.URL.RequestURI(), body)
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReportID: logger.Ptr(acceptance.Report.ID)})

	// The client is answered and the connection released before any relay starts.
	c.Header("Connection", "close")
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(acceptance.Acknowledgement))
	c.Writer.Flush()
	h.metrics.Timing(metrics.HTTPRequest, time.Since(start))

	h.service.Relay(ctx, acceptance.Report)
}
