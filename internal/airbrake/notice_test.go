package airbrake_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/airbrake-proxy/internal/airbrake"
)

const sampleNotice = `<?xml version="1.0" encoding="UTF-8"?>
<notice version="2.0">
  <api-key>76fdb93ab2cf276ec080671a8b3d3866</api-key>
  <notifier>
    <name>node-airbrake</name>
    <version>0.3.8</version>
    <url>https://github.com/felixge/node-airbrake</url>
  </notifier>
  <error>
    <class>TypeError</class>
    <message>Cannot read property 'id' of undefined</message>
    <backtrace>
      <line method="handle" file="[PROJECT_ROOT]/lib/router.js" number="41"/>
      <line method="next" file="[PROJECT_ROOT]/lib/next.js" number="7"/>
      <line method="Object.render" file="/usr/lib/node/view.js" number="112"/>
    </backtrace>
  </error>
  <server-environment>
    <project-root>/srv/app</project-root>
    <environment-name>production</environment-name>
    <hostname>web-3</hostname>
  </server-environment>
</notice>`

var _ = Describe("ParseNotice", func() {
	It("reads the fields used for relaying", func() {
		notice, err := airbrake.ParseNotice([]byte(sampleNotice))
		Expect(err).NotTo(HaveOccurred())

		Expect(notice.Version).To(Equal("2.0"))
		Expect(notice.APIKey).To(Equal("76fdb93ab2cf276ec080671a8b3d3866"))
		Expect(notice.Error.Class).To(Equal("TypeError"))
		Expect(notice.Error.Message).To(Equal("Cannot read property 'id' of undefined"))
		Expect(notice.Error.Backtrace).To(HaveLen(3))
		Expect(notice.Error.Backtrace[0]).To(Equal(airbrake.BacktraceLine{
			File:   "[PROJECT_ROOT]/lib/router.js",
			Number: "41",
			Method: "handle",
		}))
		Expect(notice.ServerEnvironment.ProjectRoot).To(Equal("/srv/app"))
		Expect(notice.ServerEnvironment.Hostname).To(Equal("web-3"))
	})

	It("rejects bodies that are not XML", func() {
		_, err := airbrake.ParseNotice([]byte(`{"json": true}`))
		Expect(err).To(MatchError(airbrake.ErrMalformedNotice))
	})

	It("rejects documents with another root element", func() {
		_, err := airbrake.ParseNotice([]byte(`<error>nope</error>`))
		Expect(err).To(MatchError(airbrake.ErrMalformedNotice))
	})

	It("rejects notices without an api key", func() {
		_, err := airbrake.ParseNotice([]byte(`<notice><error><class>E</class></error></notice>`))
		Expect(err).To(MatchError(airbrake.ErrMalformedNotice))
	})
})

var _ = Describe("ParseResponse", func() {
	DescribeTable("classifies response bodies",
		func(body string, kind airbrake.ResponseKind, noticeID string) {
			resp := airbrake.ParseResponse([]byte(body))
			Expect(resp.Kind).To(Equal(kind))
			Expect(resp.NoticeID).To(Equal(noticeID))
		},
		Entry("notice with id",
			`<?xml version="1.0" encoding="UTF-8"?><notice><id>1234567</id><url>https://airbrake.io/locate/1234567</url></notice>`,
			airbrake.ResponseNotice, "1234567"),
		Entry("rate limited",
			`<?xml version="1.0" encoding="UTF-8"?><error>Project is rate limited.</error>`,
			airbrake.ResponseRateLimited, ""),
		Entry("other error", `<error>Invalid API key</error>`, airbrake.ResponseMalformed, ""),
		Entry("notice without id", `<notice><url>x</url></notice>`, airbrake.ResponseMalformed, ""),
		Entry("html error page", `<html><body>502 Bad Gateway</body></html>`, airbrake.ResponseMalformed, ""),
		Entry("not xml", `Service Unavailable`, airbrake.ResponseMalformed, ""),
		Entry("empty", ``, airbrake.ResponseMalformed, ""),
	)
})

var _ = Describe("Acknowledgement", func() {
	It("embeds the identifier as id and in the lookup url", func() {
		ack := airbrake.NewAcknowledgement("proxy.example.com", 8080)

		Expect(ack.Render("6ba7b810-9dad-11d1-80b4-00c04fd430c8")).To(Equal(
			`<?xml version="1.0"?><notice><id>6ba7b810-9dad-11d1-80b4-00c04fd430c8</id>` +
				`<url>http://proxy.example.com:8080/locate/6ba7b810-9dad-11d1-80b4-00c04fd430c8</url></notice>`))
	})
})
