package testcookie

import (
	"context"

	http "github.com/bogdanfinn/fhttp"
)

// Logger receives debug output about challenge handling. The interceptor
// never substitutes logging for error propagation: every resolution failure
// reaches the caller as an error.
type Logger interface {
	Log(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Log(string, ...any) {}

// DetectFunc classifies a response body as challenge page or not.
type DetectFunc func(body string) bool

// ResolveFunc turns a detected challenge response into the request to replay.
type ResolveFunc func(ctx context.Context, client HTTPClient, resp *http.Response, body string) (*http.Request, error)

// Interceptor wraps a client's responses, transparently solving AES cookie
// challenges and replaying the original request with the derived cookie.
// Non-challenge responses pass through untouched. Resolution is single-shot:
// if the retried response is itself a challenge it is returned as-is.
//
// Concurrent use is safe; each invocation works on its own response and
// builds its own decryption routine.
type Interceptor struct {
	client  HTTPClient
	solver  *Solver
	detect  DetectFunc
	resolve ResolveFunc
	logger  Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithDetector replaces the default challenge classifier.
func WithDetector(detect DetectFunc) Option {
	return func(ic *Interceptor) {
		if detect != nil {
			ic.detect = detect
		}
	}
}

// WithResolver replaces the default challenge solver.
func WithResolver(resolve ResolveFunc) Option {
	return func(ic *Interceptor) {
		if resolve != nil {
			ic.resolve = resolve
		}
	}
}

// WithBaseURL sets the preferred origin for fetching the decryption routine,
// taking precedence over the origin of the request that hit the challenge.
func WithBaseURL(baseURL string) Option {
	return func(ic *Interceptor) {
		ic.solver.BaseURL = baseURL
	}
}

// WithLogger enables debug logging of challenge handling.
func WithLogger(logger Logger) Option {
	return func(ic *Interceptor) {
		if logger != nil {
			ic.logger = logger
		}
	}
}

// NewInterceptor builds an interceptor around client. The client is used both
// to fetch the decryption routine and to issue the retried request.
func NewInterceptor(client HTTPClient, opts ...Option) *Interceptor {
	ic := &Interceptor{
		client: client,
		solver: &Solver{},
		detect: IsChallenge,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(ic)
	}
	if ic.resolve == nil {
		ic.resolve = ic.solver.Resolve
	}
	return ic
}

// Process is the success-path handler: run it over every completed response.
// Non-challenge responses come back unchanged, with the peeked body restored.
// For a challenge, the original request is replayed with the derived cookie
// and the retried response replaces the challenge page; the caller never sees
// the intermediate page. Resolution failures propagate.
func (ic *Interceptor) Process(ctx context.Context, resp *http.Response) (*http.Response, error) {
	if resp == nil || resp.Body == nil || !isTextual(resp) {
		return resp, nil
	}

	body, err := peekBody(resp)
	if err != nil {
		// An unreadable body never classifies as a challenge.
		return resp, nil
	}
	if !ic.detect(body) {
		return resp, nil
	}

	ic.logger.Log("challenge page detected, deriving %s cookie", CookieName)

	retry, err := ic.resolve(ctx, ic.client, resp, body)
	if err != nil {
		return nil, err
	}
	return ic.client.Do(retry)
}

// ProcessError is the error-path handler: wrap it around transport failures
// that still carry a response, such as clients surfacing non-2xx statuses as
// errors. A challenge in the carried response is resolved exactly as in
// Process. If resolution fails the original error is re-raised, so callers
// never get a success-looking fallback for a lost response.
func (ic *Interceptor) ProcessError(ctx context.Context, resp *http.Response, cause error) (*http.Response, error) {
	if resp == nil || resp.Body == nil || !isTextual(resp) {
		return nil, cause
	}

	body, err := peekBody(resp)
	if err != nil || !ic.detect(body) {
		return nil, cause
	}

	retry, err := ic.resolve(ctx, ic.client, resp, body)
	if err != nil {
		ic.logger.Log("challenge resolution failed: %v", err)
		return nil, cause
	}
	return ic.client.Do(retry)
}

// Do issues req through the wrapped client with challenge handling applied,
// for callers without an interceptor registration point of their own.
func (ic *Interceptor) Do(req *http.Request) (*http.Response, error) {
	resp, err := ic.client.Do(req)
	if err != nil {
		return ic.ProcessError(req.Context(), resp, err)
	}
	return ic.Process(req.Context(), resp)
}
