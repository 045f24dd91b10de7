package testcookie

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

func TestProcessPassThrough(t *testing.T) {
	req := mustRequest(t, http.MethodGet, "http://gate.example/page")
	resp := htmlResponse(req, http.StatusOK, "<html>hello</html>")

	resolveCalled := false
	ic := NewInterceptor(newScriptedClient(t), WithResolver(
		func(ctx context.Context, client HTTPClient, resp *http.Response, body string) (*http.Request, error) {
			resolveCalled = true
			return nil, nil
		}))

	got, err := ic.Process(context.Background(), resp)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != resp {
		t.Error("non-challenge response was not returned as the same object")
	}
	if resolveCalled {
		t.Error("solver invoked for a non-challenge response")
	}

	// The peeked body must still be fully readable by the caller.
	body, err := io.ReadAll(got.Body)
	if err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if string(body) != "<html>hello</html>" {
		t.Errorf("restored body = %q", body)
	}
}

func TestProcessSkipsNonTextualBodies(t *testing.T) {
	req := mustRequest(t, http.MethodGet, "http://gate.example/blob")
	resp := textResponse(req, http.StatusOK, "application/octet-stream", challengePageJoined)

	ic := NewInterceptor(newScriptedClient(t), WithResolver(
		func(ctx context.Context, client HTTPClient, resp *http.Response, body string) (*http.Request, error) {
			t.Fatal("solver invoked for a non-textual response")
			return nil, nil
		}))

	got, err := ic.Process(context.Background(), resp)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != resp {
		t.Error("non-textual response was not passed through")
	}
}

// Full pipeline over the scripted client: detect, fetch aes.js, decrypt in
// the interpreter, replay with the derived cookie, return the real payload.
func TestProcessSolvesChallenge(t *testing.T) {
	expectedCookie := CookieName + "=" + xorPlaintextHex()

	client := newScriptedClient(t)
	client.handle("/aes.js", func(req *http.Request) (*http.Response, error) {
		return textResponse(req, http.StatusOK, "application/javascript", xorScript), nil
	})
	client.handle("/page", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("i") != "1" {
			t.Errorf("retry missing signal param: %v", req.URL)
		}
		if got := req.Header.Get("Cookie"); got != expectedCookie {
			t.Errorf("retry Cookie = %q, want %q", got, expectedCookie)
		}
		return htmlResponse(req, http.StatusOK, "<html>the real content</html>"), nil
	})

	origReq := mustRequest(t, http.MethodGet, "http://gate.example/page")
	ic := NewInterceptor(client)

	final, err := ic.Process(context.Background(), htmlResponse(origReq, http.StatusOK, challengePageSplit))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	body, _ := io.ReadAll(final.Body)
	if !strings.Contains(string(body), "the real content") {
		t.Errorf("final body = %q, want the gated payload", body)
	}
	if len(client.calls) != 2 {
		t.Errorf("calls = %v, want aes.js fetch then retry", client.calls)
	}
}

// A challenge on the retried response is returned as-is: resolution is
// single-shot and never loops.
func TestProcessSingleShot(t *testing.T) {
	client := newScriptedClient(t)
	client.handle("/aes.js", func(req *http.Request) (*http.Response, error) {
		return textResponse(req, http.StatusOK, "application/javascript", xorScript), nil
	})
	client.handle("/page", func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, http.StatusOK, challengePageJoined), nil
	})

	origReq := mustRequest(t, http.MethodGet, "http://gate.example/page")
	ic := NewInterceptor(client)

	final, err := ic.Process(context.Background(), htmlResponse(origReq, http.StatusOK, challengePageJoined))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	body, _ := io.ReadAll(final.Body)
	if !IsChallenge(string(body)) {
		t.Error("second challenge should surface to the caller unchanged")
	}
	if len(client.calls) != 2 {
		t.Errorf("calls = %v, want exactly one resolution attempt", client.calls)
	}
}

func TestProcessResolutionFailurePropagates(t *testing.T) {
	// All four markers present, but the parameter declarations are gone:
	// detection succeeds, extraction fails.
	body := strings.ReplaceAll(challengePageJoined, "toNumbers", "toNumbersX")

	origReq := mustRequest(t, http.MethodGet, "http://gate.example/page")
	ic := NewInterceptor(newScriptedClient(t))

	_, err := ic.Process(context.Background(), htmlResponse(origReq, http.StatusOK, body))
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("got %v, want *ExtractionError", err)
	}
}

func TestProcessErrorReRaisesOriginal(t *testing.T) {
	cause := errors.New("unexpected status 503")
	body := strings.ReplaceAll(challengePageJoined, "toNumbers", "toNumbersX")

	origReq := mustRequest(t, http.MethodGet, "http://gate.example/page")
	ic := NewInterceptor(newScriptedClient(t))

	_, err := ic.ProcessError(context.Background(), htmlResponse(origReq, http.StatusServiceUnavailable, body), cause)
	if !errors.Is(err, cause) {
		t.Fatalf("got %v, want the original error re-raised", err)
	}
}

func TestProcessErrorSolvesChallenge(t *testing.T) {
	client := newScriptedClient(t)
	client.handle("/aes.js", func(req *http.Request) (*http.Response, error) {
		return textResponse(req, http.StatusOK, "application/javascript", xorScript), nil
	})
	client.handle("/page", func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, http.StatusOK, "<html>the real content</html>"), nil
	})

	origReq := mustRequest(t, http.MethodGet, "http://gate.example/page")
	cause := errors.New("unexpected status 503")
	ic := NewInterceptor(client)

	final, err := ic.ProcessError(context.Background(), htmlResponse(origReq, http.StatusServiceUnavailable, challengePageJoined), cause)
	if err != nil {
		t.Fatalf("ProcessError: %v", err)
	}
	body, _ := io.ReadAll(final.Body)
	if !strings.Contains(string(body), "the real content") {
		t.Errorf("final body = %q, want the gated payload", body)
	}
}

func TestProcessErrorPassThrough(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	ic := NewInterceptor(newScriptedClient(t))

	if _, err := ic.ProcessError(context.Background(), nil, cause); !errors.Is(err, cause) {
		t.Fatalf("got %v, want original error for a response-less failure", err)
	}
}

// End to end through Do: first fetch hits the challenge, the shim solves it,
// and the caller only ever sees the gated payload.
func TestDoTransparentRetry(t *testing.T) {
	expectedCookie := CookieName + "=" + xorPlaintextHex()

	client := newScriptedClient(t)
	client.handle("/aes.js", func(req *http.Request) (*http.Response, error) {
		return textResponse(req, http.StatusOK, "application/javascript", xorScript), nil
	})
	client.handle("/page", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("i") == "1" && req.Header.Get("Cookie") == expectedCookie {
			return htmlResponse(req, http.StatusOK, "<html>the real content</html>"), nil
		}
		return htmlResponse(req, http.StatusOK, challengePageJoined), nil
	})

	ic := NewInterceptor(client, WithBaseURL("http://gate.example"))

	resp, err := ic.Do(mustRequest(t, http.MethodGet, "http://gate.example/page"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "the real content") {
		t.Errorf("final body = %q, want the gated payload", body)
	}
	if len(client.calls) != 3 {
		t.Errorf("calls = %v, want page, aes.js, retried page", client.calls)
	}
}
