package airbrake

import (
	"strconv"
	"strings"
)

const uuidToken = "{UUID}"

// Acknowledgement renders the Airbrake-style XML body returned to a submitting
// client. The identifier appears both as the notice id and inside the lookup URL.
type Acknowledgement struct {
	template string
}

// NewAcknowledgement builds the response template for a proxy reachable at
// http://publicHost:port.
func NewAcknowledgement(publicHost string, port int) *Acknowledgement {
	return &Acknowledgement{
		template: `<?xml version="1.0"?><notice><id>` + uuidToken + `</id><url>http://` +
			publicHost + ":" + strconv.Itoa(port) + `/locate/` + uuidToken + `</url></notice>`,
	}
}

// Render substitutes id into every placeholder of the template.
func (a *Acknowledgement) Render(id string) string {
	return strings.ReplaceAll(a.template, uuidToken, id)
}
