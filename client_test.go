package testcookie

import (
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient(nil, "")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if client == nil {
		t.Fatal("nil client")
	}
}

func TestNewClientWithBadProxy(t *testing.T) {
	if _, err := NewClient(nil, "not a proxy url"); err == nil {
		t.Error("expected an error for a malformed proxy URL")
	}
}

func TestDefaultProfileWired(t *testing.T) {
	if DefaultProfile != Chrome143Profile {
		t.Error("default profile is not Chrome 143")
	}
	if !strings.Contains(DefaultProfile.UserAgent, "Chrome/143") {
		t.Errorf("user agent %q does not match the profile version", DefaultProfile.UserAgent)
	}
	if DefaultProfile.SecChUa == "" || DefaultProfile.Platform == "" {
		t.Error("incomplete browser header bundle")
	}
}
