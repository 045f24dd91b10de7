package main

import "os"

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X main.proxyFile=proxies.txt -X main.baseURL=https://host"
var (
	proxyFile string // -X main.proxyFile=...
	baseURL   string // -X main.baseURL=...
)

// GetProxyFile returns the proxy list path (build-time or env fallback).
func GetProxyFile() string {
	if proxyFile != "" {
		return proxyFile
	}
	if v := os.Getenv("PROXY_FILE"); v != "" {
		return v
	}
	return "proxies.txt"
}

// GetBaseURL returns the preferred origin for fetching the decryption routine
// (build-time or env fallback). Empty means derive it from each request URL.
func GetBaseURL() string {
	if baseURL != "" {
		return baseURL
	}
	return os.Getenv("TESTCOOKIE_BASE_URL")
}
