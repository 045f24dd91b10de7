package testcookie

import "strings"

const (
	// CookieName is the cookie the origin expects on the retried request once
	// the challenge has been solved.
	CookieName = "__test"

	// aesScriptPath is the well-known path the decryption routine is served from.
	aesScriptPath = "/aes.js"

	// signalParam is set to "1" on the retried request's query string to tell
	// the origin the challenge was completed.
	signalParam = "i"
)

// challengeMarkers must all be present for a body to classify as a challenge
// page. Requiring the full conjunction keeps ordinary HTML that merely
// mentions cookies or redirects from triggering a resolution.
var challengeMarkers = []string{
	"slowAES.decrypt(",
	CookieName + "=",
	"location.href",
	aesScriptPath,
}

// IsChallenge reports whether body is an AES cookie-challenge page. It never
// fails: empty or non-HTML input simply classifies as not a challenge.
func IsChallenge(body string) bool {
	for _, marker := range challengeMarkers {
		if !strings.Contains(body, marker) {
			return false
		}
	}
	return true
}
