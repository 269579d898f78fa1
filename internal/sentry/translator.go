package sentry

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"basegraph.app/airbrake-proxy/common/jsoncodec"
	"basegraph.app/airbrake-proxy/core/config"
	"basegraph.app/airbrake-proxy/internal/airbrake"
)

// Translation is a built event together with the project it is destined for.
type Translation struct {
	Event   *Event
	Project config.SentryProject
	APIKey  string
}

// Translator maps Airbrake notices onto Sentry events for the configured projects.
type Translator struct {
	projects config.Projects
}

func NewTranslator(projects config.Projects) *Translator {
	return &Translator{projects: projects}
}

// Translate builds the Sentry event for a notice body. ok is false when the
// notice's api key has no Sentry project, in which case nothing should be sent.
// An error is returned only for bodies that are not Airbrake notices.
func (t *Translator) Translate(body []byte, now time.Time) (translation *Translation, ok bool, err error) {
	notice, err := airbrake.ParseNotice(body)
	if err != nil {
		return nil, false, err
	}

	project, ok := t.projects.Lookup(notice.APIKey)
	if !ok {
		return &Translation{APIKey: notice.APIKey}, false, nil
	}

	event := &Event{
		Message: notice.Error.Message,
		Exception: Exception{
			Type:  notice.Error.Class,
			Value: notice.Error.Message,
		},
		Stacktrace: Stacktrace{
			Frames: translateFrames(notice.Error.Backtrace, notice.ServerEnvironment.ProjectRoot),
		},
		Culprit:    notice.Error.Message,
		ServerName: notice.ServerEnvironment.Hostname,
		Extra:      map[string]any{},
		Logger:     "",
		Timestamp:  now.UnixMilli(),
		Project:    project.ID,
		Platform:   project.Platform,
	}

	eventID, err := contentID(event)
	if err != nil {
		return nil, false, err
	}
	event.EventID = eventID

	return &Translation{Event: event, Project: project, APIKey: notice.APIKey}, true, nil
}

func translateFrames(lines []airbrake.BacktraceLine, projectRoot string) []Frame {
	frames := make([]Frame, 0, len(lines))
	for i, line := range lines {
		module := ModuleNode
		if i == len(lines)-1 {
			module = ModuleException
		}

		lineno, _ := strconv.Atoi(strings.TrimSpace(line.Number))
		frames = append(frames, Frame{
			Filename: strings.Replace(line.File, airbrake.ProjectRootPlaceholder, projectRoot, 1),
			Lineno:   lineno,
			Function: line.Method,
			InApp:    true,
			Module:   module,
		})
	}
	return frames
}

// contentID hashes the serialized event. The timestamp is part of the hashed
// content, so two translations of the same notice at different instants get
// different ids.
func contentID(event *Event) (string, error) {
	data, err := jsoncodec.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event for id: %w", err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
