// Package status knows the shape of MVCR application numbers and which
// status texts end the polling of an application.
package status

import (
	"regexp"
	"strings"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// Accepted forms: OAM-4242/TP-2042, 4242-5/DO-2020, oam-12345-9/MK-2023.
// The OAM prefix is optional, the suffix defaults to 0.
var applicationNumberRe = regexp.MustCompile(`(?i)^(?:OAM-)?(\d+)(?:-(\d+))?/([A-Z]{2})-(\d{4})$`)

// ParseApplicationNumber parses a user-supplied application number into its
// key, reporting false for anything malformed.
func ParseApplicationNumber(s string) (types.ApplicationKey, bool) {
	m := applicationNumberRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return types.ApplicationKey{}, false
	}
	suffix := m[2]
	if suffix == "" {
		suffix = "0"
	}
	return types.ApplicationKey{
		Number: m[1],
		Suffix: suffix,
		Type:   strings.ToUpper(m[3]),
		Year:   m[4],
	}, true
}

// Status texts containing any of these mark the application as resolved:
// no further polling until the user re-subscribes.
var terminalKeywords = []string{
	// Czech wording from the ministry page
	"ukončeno",
	"povoleno",
	"zamítnuto",
	"nebylo nalezeno",
	// English fallbacks for normalized fetcher output
	"approved",
	"rejected",
	"granted",
	"denied",
	"closed",
}

// IsTerminal reports whether a status text means the decision is final.
func IsTerminal(s string) bool {
	s = strings.ToLower(s)
	for _, kw := range terminalKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
