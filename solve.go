package testcookie

import (
	"context"
	"errors"
	"net/url"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// Solver derives the challenge cookie from a detected challenge page and
// builds the request to replay. Each Resolve call is self-contained: the
// decryption routine is fetched and instantiated fresh every time, because
// the origin gives no guarantee it serves identical code twice.
type Solver struct {
	// BaseURL, when set, is the preferred origin for fetching the decryption
	// routine (scheme://host). It takes precedence over the origin of the
	// request that hit the challenge.
	BaseURL string

	// Load overrides how the decryption routine is obtained. Nil means the
	// default aes.js loader.
	Load LoadFunc
}

// Resolve runs the solving pipeline for one challenge response: extract the
// parameters, fetch and instantiate the routine from the resolved origin,
// decrypt, and build the retry request carrying the derived cookie.
//
// body is the response body text; resp.Request must be the request that
// produced the challenge page.
func (s *Solver) Resolve(ctx context.Context, client HTTPClient, resp *http.Response, body string) (*http.Request, error) {
	if resp == nil || resp.Request == nil {
		return nil, errors.New("testcookie: challenge response carries no originating request")
	}

	params, err := extractParams(body)
	if err != nil {
		return nil, err
	}

	origin, err := s.resolveOrigin(resp.Request)
	if err != nil {
		return nil, err
	}

	load := s.Load
	if load == nil {
		load = loadAES
	}
	decrypt, err := load(client, origin)
	if err != nil {
		return nil, err
	}

	plaintext, err := decrypt(params.Ciphertext, aesModeCBC, params.Key, params.IV)
	if err != nil {
		return nil, err
	}

	return buildRetryRequest(ctx, resp.Request, bytesToHex(plaintext))
}

// resolveOrigin picks the host to fetch the routine from: the configured
// BaseURL, else scheme+host of the original absolute URL, else the request's
// own Host field. There is no silent default; the routine has to come from
// the host that issued the challenge.
func (s *Solver) resolveOrigin(req *http.Request) (string, error) {
	if s.BaseURL != "" {
		return strings.TrimSuffix(s.BaseURL, "/"), nil
	}
	if req.URL != nil && req.URL.IsAbs() && req.URL.Host != "" {
		return req.URL.Scheme + "://" + req.URL.Host, nil
	}
	if req.Host != "" {
		return "https://" + req.Host, nil
	}

	var raw string
	if req.URL != nil {
		raw = req.URL.String()
	}
	return "", &OriginResolutionError{URL: raw}
}

// buildRetryRequest clones the original request, merges the derived cookie
// into its Cookie header and marks the query string with the signal
// parameter.
func buildRetryRequest(ctx context.Context, orig *http.Request, cookie string) (*http.Request, error) {
	retry := orig.Clone(ctx)

	if orig.GetBody != nil {
		body, err := orig.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	retry.URL = signalURL(orig.URL)
	mergeCookie(retry.Header, CookieName, cookie)
	return retry, nil
}

// signalURL returns a copy of u with the signal parameter set to "1", added
// or overwritten, preserving every other query parameter. If the URL does not
// survive a round-trip parse, the parameter is appended to the raw string
// with the correct separator instead.
func signalURL(u *url.URL) *url.URL {
	raw := u.String()
	parsed, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return &url.URL{Opaque: raw + sep + signalParam + "=1"}
	}

	q := parsed.Query()
	q.Set(signalParam, "1")
	parsed.RawQuery = q.Encode()
	return parsed
}

// mergeCookie adds name=value to the Cookie header, replacing any existing
// entry for the same cookie and keeping the rest.
func mergeCookie(h http.Header, name, value string) {
	var kept []string
	for _, part := range strings.Split(h.Get("Cookie"), ";") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, name+"=") {
			continue
		}
		kept = append(kept, part)
	}
	kept = append(kept, name+"="+value)
	h.Set("Cookie", strings.Join(kept, "; "))
}
