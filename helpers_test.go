package testcookie

import (
	"io"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

const (
	hexKey        = "f655ba9d09a112d4968c63579db590b4"
	hexIV         = "98344c2eee86c3994890592585b49f80"
	hexCiphertext = "fdd9f8ac7a55834004f21a883ac3e49e"
)

// challengePageJoined declares the parameters as one comma-joined statement.
const challengePageJoined = `<html><head>
<script type="text/javascript" src="/aes.js"></script>
<script>
function toNumbers(d){var e=[];d.replace(/(..)/g,function(d){e.push(parseInt(d,16))});return e}
function toHex(){for(var d=[],d=1==arguments.length&&arguments[0].constructor==Array?arguments[0]:arguments,e="",f=0;f<d.length;f++)e+=(16>d[f]?"0":"")+d[f].toString(16);return e.toLowerCase()}
var a=toNumbers("f655ba9d09a112d4968c63579db590b4"),b=toNumbers("98344c2eee86c3994890592585b49f80"),c=toNumbers("fdd9f8ac7a55834004f21a883ac3e49e");
document.cookie="__test="+toHex(slowAES.decrypt(c,2,a,b))+"; expires=Thu, 31-Dec-37 23:55:55 GMT; path=/";
location.href="http://gate.example/page?i=1";
</script></head>
<body><noscript>This site requires Javascript to work, please enable Javascript in your browser or use a browser with Javascript support</noscript></body></html>`

// challengePageSplit spreads the declarations over separate statements.
const challengePageSplit = `<html><head>
<script type="text/javascript" src="/aes.js"></script>
<script>
function toNumbers(d){var e=[];d.replace(/(..)/g,function(d){e.push(parseInt(d,16))});return e}
function toHex(){for(var d=[],d=1==arguments.length&&arguments[0].constructor==Array?arguments[0]:arguments,e="",f=0;f<d.length;f++)e+=(16>d[f]?"0":"")+d[f].toString(16);return e.toLowerCase()}
var a = toNumbers("f655ba9d09a112d4968c63579db590b4");
var b = toNumbers("98344c2eee86c3994890592585b49f80");
var c = toNumbers("fdd9f8ac7a55834004f21a883ac3e49e");
document.cookie = "__test=" + toHex(slowAES.decrypt(c, 2, a, b)) + "; expires=Thu, 31-Dec-37 23:55:55 GMT; path=/";
location.href = "http://gate.example/page?i=1";
</script></head>
<body><noscript>This site requires Javascript to work</noscript></body></html>`

// xorScript stands in for the origin's real routine: a slowAES-shaped object
// whose decrypt output the tests can recompute in Go.
const xorScript = `
var slowAES = {
	decrypt: function(cipherIn, mode, key, iv) {
		var out = [];
		for (var i = 0; i < cipherIn.length; i++) {
			out.push(cipherIn[i] ^ key[i % key.length] ^ iv[i % iv.length]);
		}
		return out;
	}
};`

// xorPlaintextHex recomputes xorScript's output for the fixture parameters.
func xorPlaintextHex() string {
	key := hexToBytes(hexKey)
	iv := hexToBytes(hexIV)
	ct := hexToBytes(hexCiphertext)
	out := make([]byte, len(ct))
	for i := range ct {
		out[i] = ct[i] ^ key[i%len(key)] ^ iv[i%len(iv)]
	}
	return bytesToHex(out)
}

// scriptedClient serves canned responses by request path, recording every
// call, so pipeline behavior can be asserted without sockets.
type scriptedClient struct {
	t      *testing.T
	routes map[string]func(req *http.Request) (*http.Response, error)
	calls  []string
}

func newScriptedClient(t *testing.T) *scriptedClient {
	t.Helper()
	return &scriptedClient{
		t:      t,
		routes: make(map[string]func(req *http.Request) (*http.Response, error)),
	}
}

func (c *scriptedClient) handle(path string, fn func(req *http.Request) (*http.Response, error)) {
	c.routes[path] = fn
}

func (c *scriptedClient) Do(req *http.Request) (*http.Response, error) {
	c.calls = append(c.calls, req.Method+" "+req.URL.String())
	fn, ok := c.routes[req.URL.Path]
	if !ok {
		c.t.Fatalf("unexpected request: %s %s", req.Method, req.URL)
	}
	return fn(req)
}

func textResponse(req *http.Request, status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func htmlResponse(req *http.Request, status int, body string) *http.Response {
	return textResponse(req, status, "text/html; charset=utf-8", body)
}

func mustRequest(t *testing.T, method, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		t.Fatalf("failed to build request for %s: %v", rawURL, err)
	}
	return req
}
