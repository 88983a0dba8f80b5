package enrich

import (
	"strings"

	"github.com/guregu/null/v5"
	"github.com/ua-parser/uap-go/uaparser"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const unknownFamily = "Other"

// UAClassifier parses User-Agent headers with the regex set bundled in uap-go.
type UAClassifier struct {
	parser *uaparser.Parser
}

func NewUAClassifier() *UAClassifier {
	return &UAClassifier{parser: uaparser.NewFromSaved()}
}

func (c *UAClassifier) Classify(userAgent string) entity.Client {
	if strings.TrimSpace(userAgent) == "" {
		return entity.Client{}
	}

	parsed := c.parser.Parse(userAgent)

	var client entity.Client

	if parsed.UserAgent != nil && known(parsed.UserAgent.Family) {
		client.BrowserFamily = null.StringFrom(parsed.UserAgent.Family)
		client.BrowserVersion = version(parsed.UserAgent.Major, parsed.UserAgent.Minor, parsed.UserAgent.Patch)
	}

	if parsed.Os != nil && known(parsed.Os.Family) {
		client.OSFamily = null.StringFrom(parsed.Os.Family)
		client.OSVersion = version(parsed.Os.Major, parsed.Os.Minor, parsed.Os.Patch)
	}

	if parsed.Device != nil && known(parsed.Device.Family) {
		client.DeviceFamily = null.StringFrom(parsed.Device.Family)
	}

	return client
}

func known(family string) bool {
	return family != "" && family != unknownFamily
}

func version(parts ...string) null.String {
	var nonEmpty []string
	for _, p := range parts {
		if p == "" {
			break
		}
		nonEmpty = append(nonEmpty, p)
	}

	if len(nonEmpty) == 0 {
		return null.String{}
	}

	return null.StringFrom(strings.Join(nonEmpty, "."))
}
