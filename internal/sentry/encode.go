package sentry

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zlib"

	"basegraph.app/airbrake-proxy/common/jsoncodec"
	"basegraph.app/airbrake-proxy/core/config"
)

const (
	protocolVersion = "5"
	clientName      = "airbrake-proxy/0.1.0"
)

// Encode serializes event to JSON, deflates it (zlib framing) and base64-encodes
// the compressed bytes, as the store endpoint expects.
func Encode(event *Event) ([]byte, error) {
	data, err := jsoncodec.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate event: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate event: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(compressed.Len()))
	base64.StdEncoding.Encode(encoded, compressed.Bytes())
	return encoded, nil
}

// Decode reverses Encode.
func Decode(payload []byte) (*Event, error) {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(compressed, payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed[:n]))
	if err != nil {
		return nil, fmt.Errorf("inflate event: %w", err)
	}
	defer r.Close()

	var event Event
	if err := jsoncodec.Decode(r, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// AuthHeader builds the X-Sentry-Auth header value for project at now.
func AuthHeader(project config.SentryProject, now time.Time) string {
	// The timestamp is milliseconds with three zeros appended.
	timestamp := strconv.FormatInt(now.UnixMilli(), 10) + "000"

	return "Sentry sentry_version=" + protocolVersion +
		", sentry_timestamp=" + timestamp +
		", sentry_client=" + clientName +
		", sentry_key=" + project.Key +
		", sentry_secret=" + project.Secret
}
