package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// robotsTransport lets a crawl proceed when robots.txt itself cannot be
// reached in time: it answers with an allow-all document instead of failing
// the page fetch that triggered the probe.
type robotsTransport struct {
	base       http.RoundTripper
	onFallback func(host string, err error)
}

func newRobotsTransport(base http.RoundTripper, onFallback func(string, error)) *robotsTransport {
	return &robotsTransport{base: base, onFallback: onFallback}
}

func (t *robotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("robots transport received nil request")
	}
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if isRobotsTxtRequest(req) && isTimeout(err) {
		if t.onFallback != nil {
			t.onFallback(req.URL.Host, err)
		}
		return allowAllResponse(req), nil
	}
	return nil, fmt.Errorf("roundtrip: %w", err)
}

func isRobotsTxtRequest(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	return strings.EqualFold(req.URL.Path, "/robots.txt")
}

func allowAllResponse(req *http.Request) *http.Response {
	const body = "User-agent: *\nAllow: /"
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        make(http.Header),
		Request:       req,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}
