package domain

import (
	"strings"
	"testing"
	"time"
)

func TestParseDevice(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		browser string
		os      string
	}{
		{
			"chrome on windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Chrome 120", "Windows",
		},
		{
			"edge on windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
			"Edge 120", "Windows",
		},
		{
			"safari on mac",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			"Safari 17", "macOS",
		},
		{
			"firefox on linux",
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			"Firefox 121", "Linux",
		},
		{
			"chrome on android",
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36",
			"Chrome 120", "Android",
		},
		{
			"safari on iphone",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			"Safari 17", "iOS",
		},
		{"curl", "curl/8.4.0", Unknown, Unknown},
		{"empty", "", Unknown, Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ParseDevice(tc.ua)
			if d.Browser != tc.browser {
				t.Errorf("Browser = %q, want %q", d.Browser, tc.browser)
			}
			if d.OS != tc.os {
				t.Errorf("OS = %q, want %q", d.OS, tc.os)
			}
			if d.UserAgent != tc.ua {
				t.Errorf("UserAgent = %q", d.UserAgent)
			}
		})
	}
}

func TestParseDevice_TruncatesLongAgent(t *testing.T) {
	d := ParseDevice(strings.Repeat("a", 2000))
	if len(d.UserAgent) != maxUserAgentLen {
		t.Errorf("len(UserAgent) = %d, want %d", len(d.UserAgent), maxUserAgentLen)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("session should not be expired before ExpiresAt")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("session should be expired at ExpiresAt")
	}
}
