package analysis

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
)

// Route is the content acquisition path chosen for a URL
type Route string

const (
	RouteVideo   Route = "video"
	RouteGeneric Route = "generic"
)

// RoutePolicy restricts which routes an analyzer may take
type RoutePolicy int

const (
	// RouteByHost picks the route from the URL host
	RouteByHost RoutePolicy = iota
	// VideoOnly rejects URLs that are not on a recognized video host
	VideoOnly
	// GenericOnly always fetches the page, even for video hosts
	GenericOnly
)

var videoHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
	"youtu.be":                 {},
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes carry the video id as the following path segment
var pathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}

// ParseURL parses a user-supplied URL. A missing scheme defaults to https.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrURLRequired
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}

	return u, nil
}

// IsVideoHost reports whether u points at a recognized video host
func IsVideoHost(u *url.URL) bool {
	_, ok := videoHosts[strings.ToLower(u.Hostname())]
	return ok
}

// DetectRoute chooses the route for u. Host membership is the only input.
func DetectRoute(u *url.URL) Route {
	if IsVideoHost(u) {
		return RouteVideo
	}
	return RouteGeneric
}

// ExtractVideoID returns the canonical 11 character video id for u
func ExtractVideoID(u *url.URL) (string, error) {
	var candidate string

	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be"):
		candidate = firstSegment(u.Path)
	case u.Path == "/watch" || u.Path == "/watch/":
		candidate = u.Query().Get("v")
	default:
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				candidate = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", domain.ErrNoVideoID
	}
	return candidate, nil
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
