package testcookie

import (
	"bytes"
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// PseudoHeaderOrder is the standard HTTP/2 pseudo-header order for all requests.
var PseudoHeaderOrder = []string{
	":method",
	":authority",
	":scheme",
	":path",
}

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}

// isTextual reports whether the response plausibly carries a textual body.
// Challenge pages are served as HTML; responses declaring another content
// type are passed through without touching the body at all.
func isTextual(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	return strings.Contains(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

// peekBody reads the full body for inspection and restores it so the response
// stays usable by the caller. Compressed bodies are inflated for inspection
// only; the restored body keeps the original bytes and Content-Encoding.
func peekBody(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	if resp.Header.Get("Content-Encoding") == "" {
		return string(raw), nil
	}

	probe := &http.Response{
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewReader(raw)),
	}
	decoded := http.DecompressBody(probe)
	defer decoded.Close()
	text, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(text), nil
}
