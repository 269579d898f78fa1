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
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/model"
	"basegraph.app/airbrake-proxy/internal/sentry"
)

// Sentry translates notices into Sentry events and relays them to the store
// endpoint. Sentry assigns nothing the client can look up, so outcomes are
// only logged and counted.
type Sentry struct {
	client     *http.Client
	storeURL   string
	timeout    time.Duration
	translator *sentry.Translator
	metrics    metrics.Sink
	now        func() time.Time
}

func NewSentry(client *http.Client, cfg config.SentryConfig, translator *sentry.Translator, sink metrics.Sink) *Sentry {
	return &Sentry{
		client:     client,
		storeURL:   cfg.StoreURL(),
		timeout:    cfg.Timeout,
		translator: translator,
		metrics:    sink,
		now:        time.Now,
	}
}

func (s *Sentry) Forward(ctx context.Context, report model.Report) model.Classification {
	translation, ok, err := s.translator.Translate(report.Body, s.now())
	if err != nil {
		s.metrics.Increment(metrics.SentryTranslateFail)
		slog.WarnContext(ctx, "could not translate notice for sentry", "error", err)
		return model.ClassificationMalformed
	}
	if !ok {
		s.metrics.Increment(metrics.SentryTranslateSkipped)
		slog.InfoContext(ctx, "airbrake api key is not defined in sentry projects configuration, will not send to sentry",
			"api_key", translation.APIKey)
		return model.ClassificationSkipped
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ProjectKey: logger.Ptr(translation.APIKey)})

	payload, err := sentry.Encode(translation.Event)
	if err != nil {
		s.metrics.Increment(metrics.SentryRequestFailEncode)
		slog.ErrorContext(ctx, "error compressing sentry event", "error", err)
		return model.ClassificationMalformed
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.storeURL, bytes.NewReader(payload))
	if err != nil {
		s.metrics.Increment(metrics.SentryRequestFailError)
		slog.ErrorContext(ctx, "failed to build sentry request, exception lost", "error", err)
		return model.ClassificationError
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Sentry-Auth", sentry.AuthHeader(translation.Project, s.now()))
	req.Close = true

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return s.failed(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.failed(ctx, err)
	}
	s.metrics.Timing(metrics.SentryRequest, time.Since(start))
	s.metrics.Increment(metrics.SentryRequestSuccess)

	if resp.StatusCode >= http.StatusMultipleChoices {
		slog.WarnContext(ctx, "sentry rejected event",
			"status", resp.StatusCode,
			"event_id", translation.Event.EventID,
			"response", logger.Truncate(string(body), maxLoggedBody))
	} else {
		slog.DebugContext(ctx, "sentry accepted event", "event_id", translation.Event.EventID)
	}
	return model.ClassificationSuccess
}

func (s *Sentry) failed(ctx context.Context, err error) model.Classification {
	if isTimeout(err) {
		s.metrics.Increment(metrics.SentryRequestFailTimeout)
		slog.ErrorContext(ctx, "connection to sentry timed out, exception lost",
			"host", s.storeURL, "timeout_ms", s.timeout.Milliseconds())
		return model.ClassificationTimeout
	}

	s.metrics.Increment(metrics.SentryRequestFailError)
	slog.ErrorContext(ctx, "failed sending request to sentry, exception lost", "host", s.storeURL, "error", err)
	return model.ClassificationError
}
