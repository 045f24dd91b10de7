package testcookie

import "regexp"

// ChallengeParams holds the three byte sequences embedded in a challenge page
// script: AES key (a), initialization vector (b) and ciphertext (c).
type ChallengeParams struct {
	Key        []byte
	IV         []byte
	Ciphertext []byte
}

// The page declares its parameters either as one comma-joined statement
//
//	var a=toNumbers("..."),b=toNumbers("..."),c=toNumbers("...");
//
// or as three separate assignments spread over multiple lines. A word
// boundary before the variable name covers both layouts with one pattern.
var (
	keyRe        = regexp.MustCompile(`\ba\s*=\s*toNumbers\(\s*["']([0-9a-fA-F]+)["']\s*\)`)
	ivRe         = regexp.MustCompile(`\bb\s*=\s*toNumbers\(\s*["']([0-9a-fA-F]+)["']\s*\)`)
	ciphertextRe = regexp.MustCompile(`\bc\s*=\s*toNumbers\(\s*["']([0-9a-fA-F]+)["']\s*\)`)
)

// extractParams pulls the key, IV and ciphertext out of a challenge page.
// Extraction is all-or-nothing: if any of the three variables cannot be
// located the whole parse fails with *ExtractionError, never a partial result.
func extractParams(body string) (*ChallengeParams, error) {
	key, ok := matchHex(keyRe, body)
	if !ok {
		return nil, &ExtractionError{Missing: "a"}
	}
	iv, ok := matchHex(ivRe, body)
	if !ok {
		return nil, &ExtractionError{Missing: "b"}
	}
	ciphertext, ok := matchHex(ciphertextRe, body)
	if !ok {
		return nil, &ExtractionError{Missing: "c"}
	}
	return &ChallengeParams{Key: key, IV: iv, Ciphertext: ciphertext}, nil
}

func matchHex(re *regexp.Regexp, body string) ([]byte, bool) {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	b := hexToBytes(m[1])
	if len(b) == 0 {
		return nil, false
	}
	return b, true
}
