package testcookie

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/robertkrimen/otto"
)

// aesModeCBC selects block-chained decryption in the slowAES calling
// convention, the only mode the challenge scheme uses.
const aesModeCBC = 2

// DecryptFunc invokes the origin-supplied decryption routine:
// decrypt(ciphertext, mode, key, iv) -> plaintext. A routine is built fresh
// for every resolution and must not be shared between concurrent resolutions;
// the underlying interpreter is not safe for concurrent use.
type DecryptFunc func(ciphertext []byte, mode int, key, iv []byte) ([]byte, error)

// LoadFunc fetches and instantiates the decryption routine for an origin.
type LoadFunc func(client HTTPClient, origin string) (DecryptFunc, error)

// loadAES fetches the decryption routine from the origin's well-known path
// and instantiates it in an isolated interpreter. The fetched script runs in
// a fresh VM that receives no host objects: parameters cross the boundary as
// numeric literals and the result comes back as JSON text, so the only thing
// the script can hand us is the decrypted byte sequence.
func loadAES(client HTTPClient, origin string) (DecryptFunc, error) {
	script, err := fetchAESScript(client, origin)
	if err != nil {
		return nil, &CryptoLoadError{Err: err}
	}
	return newAESRoutine(script)
}

func fetchAESScript(client HTTPClient, origin string) (string, error) {
	scriptURL := strings.TrimSuffix(origin, "/") + aesScriptPath
	req, err := http.NewRequest(http.MethodGet, scriptURL, nil)
	if err != nil {
		return "", err
	}

	req.Header = http.Header{
		"user-agent":      {Chrome143UserAgent},
		"accept":          {"*/*"},
		"accept-language": {"en-US,en;q=0.9"},
		"sec-fetch-dest":  {"script"},
		"sec-fetch-mode":  {"no-cors"},
		"sec-fetch-site":  {"same-origin"},
		http.HeaderOrderKey: {
			"user-agent",
			"accept",
			"accept-language",
			"sec-fetch-dest",
			"sec-fetch-mode",
			"sec-fetch-site",
		},
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, aesScriptPath)
	}
	return string(body), nil
}

// newAESRoutine evaluates the script in a fresh VM and locates the decrypt
// entry point, which ships either as slowAES.decrypt or nested under
// slowAES.modeOfOperation.
func newAESRoutine(script string) (DecryptFunc, error) {
	vm := otto.New()
	if _, err := vm.Run(script); err != nil {
		return nil, &CryptoLoadError{Err: err}
	}

	entry, err := decryptEntryPoint(vm)
	if err != nil {
		return nil, err
	}

	return func(ciphertext []byte, mode int, key, iv []byte) ([]byte, error) {
		expr := fmt.Sprintf("JSON.stringify(%s(%s, %d, %s, %s))",
			entry, jsByteArray(ciphertext), mode, jsByteArray(key), jsByteArray(iv))

		val, err := vm.Run(expr)
		if err != nil {
			return nil, &DecryptionError{Err: err}
		}
		raw, err := val.ToString()
		if err != nil {
			return nil, &DecryptionError{Err: err}
		}

		var nums []int
		if err := json.Unmarshal([]byte(raw), &nums); err != nil {
			return nil, &DecryptionError{Err: fmt.Errorf("routine returned non-numeric output %q: %w", raw, err)}
		}
		out := make([]byte, len(nums))
		for i, n := range nums {
			out[i] = byte(n)
		}
		return out, nil
	}, nil
}

func decryptEntryPoint(vm *otto.Otto) (string, error) {
	for _, entry := range []string{"slowAES.decrypt", "slowAES.modeOfOperation.decrypt"} {
		val, err := vm.Run("typeof " + entry + " === 'function'")
		if err != nil {
			continue
		}
		if ok, _ := val.ToBoolean(); ok {
			return entry, nil
		}
	}
	return "", &CryptoLoadError{Err: errors.New("script exposes no slowAES decrypt function")}
}

func jsByteArray(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	sb.WriteByte(']')
	return sb.String()
}
