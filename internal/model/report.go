package model

import "time"

// Report is a notice as submitted by a client. It is never modified after
// intake and is only held while its relays are in flight.
type Report struct {
	ID         string
	Path       string // request URI of the submission, forwarded to Airbrake as-is
	Body       []byte
	ReceivedAt time.Time
}

// Classification is the outcome of relaying a report to one backend.
type Classification string

const (
	ClassificationSuccess     Classification = "success"
	ClassificationRateLimited Classification = "ratelimited"
	ClassificationMalformed   Classification = "malformed"
	ClassificationTimeout     Classification = "timeout"
	ClassificationError       Classification = "error"
	// ClassificationSkipped means the backend was not asked at all, e.g. a
	// notice whose api key has no Sentry project.
	ClassificationSkipped Classification = "skipped"
)
