package sentry_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/airbrake-proxy/core/config"
	"basegraph.app/airbrake-proxy/internal/airbrake"
	"basegraph.app/airbrake-proxy/internal/sentry"
)

const notice = `<?xml version="1.0" encoding="UTF-8"?>
<notice version="2.0">
  <api-key>abc123</api-key>
  <error>
    <class>TypeError</class>
    <message>undefined is not a function</message>
    <backtrace>
      <line method="handle" file="[PROJECT_ROOT]/lib/router.js" number="41"/>
      <line method="next" file="[PROJECT_ROOT]/lib/[PROJECT_ROOT].js" number="7"/>
      <line method="render" file="[PROJECT_ROOT]/views/index.js" number="112"/>
    </backtrace>
  </error>
  <server-environment>
    <project-root>/srv/app</project-root>
    <hostname>web-3</hostname>
  </server-environment>
</notice>`

var _ = Describe("Translator", func() {
	var (
		translator *sentry.Translator
		now        time.Time
	)

	BeforeEach(func() {
		translator = sentry.NewTranslator(config.Projects{
			"abc123": {ID: "7", Platform: "node", Key: "public", Secret: "private"},
		})
		now = time.UnixMilli(1700000000123)
	})

	It("maps a three line backtrace onto three frames, tagging only the last as exception", func() {
		translation, ok, err := translator.Translate([]byte(notice), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		frames := translation.Event.Stacktrace.Frames
		Expect(frames).To(Equal([]sentry.Frame{
			{Filename: "/srv/app/lib/router.js", Lineno: 41, Function: "handle", InApp: true, Module: sentry.ModuleNode},
			{Filename: "/srv/app/lib/[PROJECT_ROOT].js", Lineno: 7, Function: "next", InApp: true, Module: sentry.ModuleNode},
			{Filename: "/srv/app/views/index.js", Lineno: 112, Function: "render", InApp: true, Module: sentry.ModuleException},
		}))
	})

	It("fills the event from the notice and project", func() {
		translation, ok, err := translator.Translate([]byte(notice), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		event := translation.Event
		Expect(event.Message).To(Equal("undefined is not a function"))
		Expect(event.Culprit).To(Equal("undefined is not a function"))
		Expect(event.Exception).To(Equal(sentry.Exception{Type: "TypeError", Value: "undefined is not a function"}))
		Expect(event.ServerName).To(Equal("web-3"))
		Expect(event.Extra).To(BeEmpty())
		Expect(event.Logger).To(BeEmpty())
		Expect(event.Timestamp).To(Equal(int64(1700000000123)))
		Expect(event.Project).To(Equal("7"))
		Expect(event.Platform).To(Equal("node"))
		Expect(event.EventID).To(MatchRegexp(`^[0-9a-f]{32}$`))

		Expect(translation.Project.Key).To(Equal("public"))
		Expect(translation.APIKey).To(Equal("abc123"))
	})

	It("derives the event id from content including the timestamp", func() {
		first, _, err := translator.Translate([]byte(notice), now)
		Expect(err).NotTo(HaveOccurred())
		same, _, err := translator.Translate([]byte(notice), now)
		Expect(err).NotTo(HaveOccurred())
		later, _, err := translator.Translate([]byte(notice), now.Add(time.Millisecond))
		Expect(err).NotTo(HaveOccurred())

		Expect(same.Event.EventID).To(Equal(first.Event.EventID))
		Expect(later.Event.EventID).NotTo(Equal(first.Event.EventID))
	})

	It("tags a single frame as exception", func() {
		body := `<notice><api-key>abc123</api-key><error><class>E</class><message>m</message>` +
			`<backtrace><line method="main" file="app.js" number="1"/></backtrace></error></notice>`

		translation, ok, err := translator.Translate([]byte(body), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(translation.Event.Stacktrace.Frames).To(HaveLen(1))
		Expect(translation.Event.Stacktrace.Frames[0].Module).To(Equal(sentry.ModuleException))
	})

	It("produces no frames for an empty backtrace", func() {
		body := `<notice><api-key>abc123</api-key><error><class>E</class><message>m</message></error></notice>`

		translation, ok, err := translator.Translate([]byte(body), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(translation.Event.Stacktrace.Frames).To(BeEmpty())
	})

	It("skips notices whose api key has no project", func() {
		body := `<notice><api-key>unmapped</api-key><error><class>E</class></error></notice>`

		translation, ok, err := translator.Translate([]byte(body), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(translation.APIKey).To(Equal("unmapped"))
		Expect(translation.Event).To(BeNil())
	})

	It("fails for bodies that are not notices", func() {
		_, ok, err := translator.Translate([]byte("garbage"), now)
		Expect(err).To(MatchError(airbrake.ErrMalformedNotice))
		Expect(ok).To(BeFalse())
	})
})
