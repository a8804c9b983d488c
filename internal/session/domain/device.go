package domain

import (
	"regexp"
	"strings"
)

// Unknown is reported for browser or OS when the user agent does not say.
const Unknown = "Unknown"

// Device describes the client a session was created from.
type Device struct {
	UserAgent string
	Browser   string
	OS        string
}

var (
	browserPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Edge", regexp.MustCompile(`(?i)\bEdg(?:e|A|iOS)?/(\d+)`)},
		{"Opera", regexp.MustCompile(`(?i)\b(?:OPR|Opera)[/\s](\d+)`)},
		{"Firefox", regexp.MustCompile(`(?i)\b(?:Firefox|FxiOS)/(\d+)`)},
		{"Chrome", regexp.MustCompile(`(?i)\b(?:Chrome|CriOS)/(\d+)`)},
		{"Safari", regexp.MustCompile(`(?i)\bVersion/(\d+).*Safari/`)},
		{"Internet Explorer", regexp.MustCompile(`(?i)\bMSIE (\d+)`)},
	}
	osPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Android", regexp.MustCompile(`(?i)\bAndroid\b`)},
		{"iOS", regexp.MustCompile(`(?i)\b(?:iPhone|iPad|iPod|iOS)\b`)},
		{"Windows", regexp.MustCompile(`(?i)\bWindows\b`)},
		{"macOS", regexp.MustCompile(`(?i)\bMac OS X\b|\bMacintosh\b`)},
		{"Linux", regexp.MustCompile(`(?i)\bLinux\b`)},
	}
)

// maxUserAgentLen caps what is stored per session.
const maxUserAgentLen = 512

// ParseDevice extracts a coarse browser ("Chrome 120") and OS from a User-Agent header.
// Parsing never fails; unrecognised parts are reported as Unknown.
func ParseDevice(userAgent string) Device {
	ua := strings.TrimSpace(userAgent)
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	d := Device{UserAgent: ua, Browser: Unknown, OS: Unknown}
	for _, p := range browserPatterns {
		if m := p.re.FindStringSubmatch(ua); m != nil {
			d.Browser = p.name + " " + m[1]
			break
		}
	}
	for _, p := range osPatterns {
		if p.re.MatchString(ua) {
			d.OS = p.name
			break
		}
	}
	return d
}
