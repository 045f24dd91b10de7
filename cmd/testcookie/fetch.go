package main

import (
	"context"
	"io"

	http "github.com/bogdanfinn/fhttp"

	"testcookie"
)

// Worker fetches URLs through a challenge-solving client. One worker owns one
// client session (cookie jar included), so a solved challenge keeps paying
// off for subsequent fetches against the same host within the session.
type Worker struct {
	id           string
	shim         *testcookie.Interceptor
	proxyManager *ProxyManager
	proxyIdx     int
	logger       *workerLogger
	solved       bool
}

// connect builds a fresh client on a random proxy and wraps it with the
// challenge interceptor. The detector is wrapped only to record whether a
// challenge was seen; classification itself is unchanged.
func (w *Worker) connect() error {
	proxyURL, proxyIdx := w.proxyManager.Random()
	w.proxyIdx = proxyIdx
	w.logger.Log("Using proxy: %s", w.proxyManager.DisplayAt(proxyIdx))

	client, err := testcookie.NewClient(nil, proxyURL)
	if err != nil {
		return err
	}

	w.shim = testcookie.NewInterceptor(client,
		testcookie.WithBaseURL(GetBaseURL()),
		testcookie.WithLogger(w.logger),
		testcookie.WithDetector(func(body string) bool {
			hit := testcookie.IsChallenge(body)
			if hit {
				w.solved = true
			}
			return hit
		}),
	)
	return nil
}

func (w *Worker) rotateProxy() {
	if err := w.connect(); err != nil {
		w.logger.Log("Failed to rotate proxy: %v", err)
	}
}

// Fetch issues a navigation request for rawURL through the shim and drains
// the final body.
func (w *Worker) Fetch(ctx context.Context, rawURL string) TaskResult {
	w.solved = false

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return TaskResult{URL: rawURL, Error: err}
	}
	req.Header = navigationHeaders()

	resp, err := w.shim.Do(req)
	if err != nil {
		return TaskResult{URL: rawURL, Error: err}
	}
	defer resp.Body.Close()

	body := http.DecompressBody(resp)
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return TaskResult{URL: rawURL, Error: err}
	}

	return TaskResult{URL: rawURL, Status: resp.StatusCode, Bytes: len(data), Solved: w.solved}
}

func navigationHeaders() http.Header {
	profile := testcookie.DefaultProfile
	return http.Header{
		"upgrade-insecure-requests": {"1"},
		"user-agent":                {profile.UserAgent},
		"accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"},
		"sec-fetch-site":            {"none"},
		"sec-fetch-mode":            {"navigate"},
		"sec-fetch-user":            {"?1"},
		"sec-fetch-dest":            {"document"},
		"sec-ch-ua":                 {profile.SecChUa},
		"sec-ch-ua-mobile":          {profile.Mobile},
		"sec-ch-ua-platform":        {profile.Platform},
		"accept-encoding":           {"gzip, deflate, br, zstd"},
		"accept-language":           {"en-US,en;q=0.9"},
		http.HeaderOrderKey: {
			"upgrade-insecure-requests",
			"user-agent",
			"accept",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-user",
			"sec-fetch-dest",
			"sec-ch-ua",
			"sec-ch-ua-mobile",
			"sec-ch-ua-platform",
			"accept-encoding",
			"accept-language",
		},
		http.PHeaderOrderKey: testcookie.PseudoHeaderOrder,
	}
}
