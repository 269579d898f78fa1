package airbrake

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// RateLimitedMessage is the error text Airbrake answers with when a project is over its quota.
const RateLimitedMessage = "Project is rate limited."

// ResponseKind classifies a parsed Airbrake response body.
type ResponseKind string

const (
	ResponseNotice      ResponseKind = "notice"
	ResponseRateLimited ResponseKind = "ratelimited"
	ResponseMalformed   ResponseKind = "malformed"
)

// Response is the outcome of parsing an Airbrake response body.
type Response struct {
	Kind ResponseKind
	// NoticeID is the id Airbrake assigned, set only for ResponseNotice.
	NoticeID string
}

type responseDocument struct {
	XMLName xml.Name
	ID      string `xml:"id"`
	Text    string `xml:",chardata"`
}

// ParseResponse classifies an Airbrake response body. A notice document with an
// id is a success, an error document carrying RateLimitedMessage is a rate
// limit, and anything else (including bodies that are not XML) is malformed.
func ParseResponse(body []byte) Response {
	var doc responseDocument
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return Response{Kind: ResponseMalformed}
	}

	switch doc.XMLName.Local {
	case "notice":
		if id := strings.TrimSpace(doc.ID); id != "" {
			return Response{Kind: ResponseNotice, NoticeID: id}
		}
	case "error":
		if strings.TrimSpace(doc.Text) == RateLimitedMessage {
			return Response{Kind: ResponseRateLimited}
		}
	}

	return Response{Kind: ResponseMalformed}
}
