// Package sentry translates Airbrake notices into Sentry store-API events and
// encodes them for transport.
package sentry

// Frame module tags. Every backtrace line is tagged "node" except the last,
// which is tagged "exception".
const (
	ModuleNode      = "node"
	ModuleException = "exception"
)

// Event is a Sentry store-API event. Field order is the serialization order,
// which feeds the event id hash.
type Event struct {
	Message    string         `json:"message"`
	Exception  Exception      `json:"sentry.interfaces.Exception"`
	Stacktrace Stacktrace     `json:"sentry.interfaces.Stacktrace"`
	Culprit    string         `json:"culprit"`
	ServerName string         `json:"server_name"`
	Extra      map[string]any `json:"extra"`
	Logger     string         `json:"logger"`
	// Timestamp is in unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Project   string `json:"project"`
	Platform  string `json:"platform"`
	EventID   string `json:"event_id,omitempty"`
}

type Exception struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

type Frame struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	Function string `json:"function"`
	InApp    bool   `json:"in_app"`
	Module   string `json:"module"`
}
