// Package airbrake models the Airbrake v2 XML notice API: the notices clients
// submit and the responses the Airbrake backend returns for them.
package airbrake

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedNotice is returned when a submitted body is not an Airbrake notice.
var ErrMalformedNotice = errors.New("malformed airbrake notice")

// ProjectRootPlaceholder is the token notifiers put in front of in-project backtrace paths.
const ProjectRootPlaceholder = "[PROJECT_ROOT]"

// Notice is the subset of an Airbrake v2 notice the proxy reads.
type Notice struct {
	XMLName           xml.Name          `xml:"notice"`
	Version           string            `xml:"version,attr"`
	APIKey            string            `xml:"api-key"`
	Error             NoticeError       `xml:"error"`
	ServerEnvironment ServerEnvironment `xml:"server-environment"`
}

type NoticeError struct {
	Class     string          `xml:"class"`
	Message   string          `xml:"message"`
	Backtrace []BacktraceLine `xml:"backtrace>line"`
}

type BacktraceLine struct {
	File   string `xml:"file,attr"`
	Number string `xml:"number,attr"`
	Method string `xml:"method,attr"`
}

type ServerEnvironment struct {
	ProjectRoot     string `xml:"project-root"`
	EnvironmentName string `xml:"environment-name"`
	Hostname        string `xml:"hostname"`
}

// ParseNotice decodes a submitted notice body.
func ParseNotice(body []byte) (*Notice, error) {
	var notice Notice
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&notice); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNotice, err)
	}

	notice.APIKey = strings.TrimSpace(notice.APIKey)
	if notice.APIKey == "" {
		return nil, fmt.Errorf("%w: missing api-key", ErrMalformedNotice)
	}

	return &notice, nil
}
