package forwarder

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"basegraph.app/airbrake-proxy/common/logger"
	"basegraph.app/airbrake-proxy/core/config"
	"basegraph.app/airbrake-proxy/internal/airbrake"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/model"
	"basegraph.app/airbrake-proxy/internal/store"
)

const maxLoggedBody = 4096

// Airbrake relays raw notices to the Airbrake backend and records the notice id
// it assigns against the report's identifier.
type Airbrake struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	store   store.CorrelationStore
	metrics metrics.Sink
}

func NewAirbrake(client *http.Client, cfg config.AirbrakeConfig, correlations store.CorrelationStore, sink metrics.Sink) *Airbrake {
	return &Airbrake{
		client:  client,
		baseURL: cfg.BaseURL(),
		timeout: cfg.Timeout,
		store:   correlations,
		metrics: sink,
	}
}

func (a *Airbrake) Forward(ctx context.Context, report model.Report) model.Classification {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+report.Path, bytes.NewReader(report.Body))
	if err != nil {
		slog.ErrorContext(ctx, "failed to build airbrake request, exception lost", "error", err, "path", report.Path)
		a.metrics.Increment(metrics.AirbrakeRequestFailError)
		return model.ClassificationError
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Close = true

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return a.failed(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return a.failed(ctx, err)
	}
	a.metrics.Timing(metrics.AirbrakeRequest, time.Since(start))

	parsed := airbrake.ParseResponse(body)
	switch parsed.Kind {
	case airbrake.ResponseNotice:
		if err := a.store.Set(ctx, report.ID, parsed.NoticeID); err != nil {
			slog.ErrorContext(ctx, "failed to store airbrake notice id", "error", err, "notice_id", parsed.NoticeID)
			a.metrics.Increment(metrics.CorrelationStoreFail)
		}
		a.metrics.Increment(metrics.AirbrakeRequestSuccess)
		slog.DebugContext(ctx, "airbrake accepted notice", "notice_id", parsed.NoticeID, "status", resp.StatusCode)
		return model.ClassificationSuccess

	case airbrake.ResponseRateLimited:
		a.metrics.Increment(metrics.AirbrakeRequestFailRateLimited)
		slog.WarnContext(ctx, "airbrake project is rate limited, exception lost", "status", resp.StatusCode)
		return model.ClassificationRateLimited

	default:
		a.metrics.Increment(metrics.AirbrakeRequestFailXML)
		slog.ErrorContext(ctx, "invalid XML returned from airbrake",
			"host", a.baseURL,
			"status", resp.StatusCode,
			"response", logger.Truncate(string(body), maxLoggedBody))
		return model.ClassificationMalformed
	}
}

func (a *Airbrake) failed(ctx context.Context, err error) model.Classification {
	if isTimeout(err) {
		a.metrics.Increment(metrics.AirbrakeRequestFailTimeout)
		slog.ErrorContext(ctx, "connection to airbrake timed out, exception lost",
			"host", a.baseURL, "timeout_ms", a.timeout.Milliseconds())
		return model.ClassificationTimeout
	}

	a.metrics.Increment(metrics.AirbrakeRequestFailError)
	slog.ErrorContext(ctx, "failed sending request to airbrake, exception lost", "host", a.baseURL, "error", err)
	return model.ClassificationError
}
