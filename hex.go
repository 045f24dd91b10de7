package testcookie

import "strings"

// hexToBytes decodes a hex string two characters at a time, mirroring the
// challenge page's own toNumbers() routine. A trailing odd character is
// dropped rather than rejected; that quirk is load-bearing because the cookie
// derived here must match what a browser running the page would compute.
// Returns nil if a non-hex character is encountered.
func hexToBytes(s string) []byte {
	out := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		hi := nibble(s[i])
		lo := nibble(s[i+1])
		if hi < 0 || lo < 0 {
			return nil
		}
		out = append(out, byte(hi)<<4|byte(lo))
	}
	return out
}

func nibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// bytesToHex encodes b as lowercase hex, two digits per byte. This is the
// exact encoding the origin expects as the cookie value.
func bytesToHex(b []byte) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0f])
	}
	return sb.String()
}
