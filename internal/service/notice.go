package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/airbrake-proxy/common/id"
	"basegraph.app/airbrake-proxy/internal/airbrake"
	"basegraph.app/airbrake-proxy/internal/model"
	"basegraph.app/airbrake-proxy/internal/store"
)

// ErrNoticeNotFound is returned by Locate for identifiers that are unknown or
// whose Airbrake notice id has not arrived yet.
var ErrNoticeNotFound = errors.New("notice not found")

const locatePrefix = "/locate/"

// Dispatcher launches the relays for an accepted report.
type Dispatcher interface {
	Dispatch(ctx context.Context, report model.Report)
}

// Acceptance is an accepted submission and the acknowledgement owed to the client.
type Acceptance struct {
	Report          model.Report
	Acknowledgement string
}

type NoticeService interface {
	// Accept issues an identifier for a submission. It never fails: validity of
	// the body is the backends' business.
	Accept(ctx context.Context, path string, body []byte) Acceptance
	// Relay hands an accepted report to the backends. Call it only after the
	// acknowledgement has been written.
	Relay(ctx context.Context, report model.Report)
	// Locate resolves a lookup path to the Airbrake URL of the notice.
	Locate(ctx context.Context, path string) (string, error)
}

type noticeService struct {
	ids          id.Generator
	ack          *airbrake.Acknowledgement
	dispatcher   Dispatcher
	correlations store.CorrelationStore
	locateURL    string
	now          func() time.Time
}

func NewNoticeService(ids id.Generator, ack *airbrake.Acknowledgement, dispatcher Dispatcher, correlations store.CorrelationStore, locateURL string) NoticeService {
	return &noticeService{
		ids:          ids,
		ack:          ack,
		dispatcher:   dispatcher,
		correlations: correlations,
		locateURL:    strings.TrimSuffix(locateURL, "/"),
		now:          time.Now,
	}
}

func (s *noticeService) Accept(ctx context.Context, path string, body []byte) Acceptance {
	report := model.Report{
		ID:         s.ids.New(),
		Path:       path,
		Body:       body,
		ReceivedAt: s.now(),
	}
	slog.DebugContext(ctx, "notice accepted", "report_id", report.ID, "path", path, "bytes", len(body))

	return Acceptance{
		Report:          report,
		Acknowledgement: s.ack.Render(report.ID),
	}
}

func (s *noticeService) Relay(ctx context.Context, report model.Report) {
	s.dispatcher.Dispatch(ctx, report)
}

func (s *noticeService) Locate(ctx context.Context, path string) (string, error) {
	lookupID := SanitizeLookupID(path)

	noticeID, err := s.correlations.Get(ctx, lookupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoticeNotFound
		}
		return "", fmt.Errorf("looking up notice %q: %w", lookupID, err)
	}
	if noticeID == "" || noticeID == store.PendingSentinel {
		return "", ErrNoticeNotFound
	}

	return s.locateURL + locatePrefix + noticeID, nil
}

// SanitizeLookupID reduces a lookup path to at most one identifier's worth of
// bytes: every "/locate/" is removed, then every "/", then the rest is cut to id.Length.
func SanitizeLookupID(path string) string {
	cleaned := strings.ReplaceAll(path, locatePrefix, "")
	cleaned = strings.ReplaceAll(cleaned, "/", "")
	if len(cleaned) > id.Length {
		cleaned = cleaned[:id.Length]
	}
	return cleaned
}
