package security

import (
	"testing"
	"time"
)

func TestValidateURL_AllowsPublicHTTPS(t *testing.T) {
	g := NewSSRFGuard()

	for _, u := range []string{
		"https://news.example.com/feed.xml",
		"http://announcements.example.org/rss",
	} {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) error = %v, want nil", u, err)
		}
	}
}

func TestValidateURL_BlocksDangerousTargets(t *testing.T) {
	g := NewSSRFGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"loopback IP", "http://127.0.0.1/feed"},
		{"private IP", "http://10.0.0.5/feed"},
		{"private IP 172", "http://172.16.0.1/feed"},
		{"private IP 192", "http://192.168.1.1/feed"},
		{"metadata IP", "http://169.254.169.254/latest/meta-data"},
		{"localhost", "http://localhost/feed"},
		{"file scheme", "file:///etc/passwd"},
		{"ftp scheme", "ftp://example.com/feed"},
		{"empty URL", ""},
		{"no host", "https:///feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.url)
			}
		})
	}
}

func TestNewSafeClient_ReturnsConfiguredClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(10*time.Second, 1<<20)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", client.Timeout)
	}
}
