// Package httpclient builds the outbound HTTP clients used for upstream
// gateways and the backoff schedule shared by their retry loops.
package httpclient

import (
	"math/rand"
	"net"
	"net/http"
	"time"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
)

// New returns a client bounded by timeout end to end that does not follow
// redirects.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Backoff delays between upstream attempts.
var retryDelays = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// JitterFactor is the +/- fraction of jitter applied to delays.
const JitterFactor = 0.2

// RetryDelay returns the jittered delay before retry number attempt
// (0-indexed). Attempts past the table reuse the last delay.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * float64(base) * JitterFactor
	return time.Duration(float64(base) + jitter)
}

// MaxBackoff returns the longest total time RetryDelay can sleep across a
// call with the given number of attempts.
func MaxBackoff(attempts int) time.Duration {
	var total time.Duration
	for retry := 0; retry < attempts-1; retry++ {
		idx := retry
		if idx >= len(retryDelays) {
			idx = len(retryDelays) - 1
		}
		total += retryDelays[idx] + time.Duration(float64(retryDelays[idx])*JitterFactor)
	}
	return total
}

// Retryable reports whether an upstream status code is worth retrying.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
