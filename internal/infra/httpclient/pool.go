package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so concurrent requests
// to the same provider API reuse TCP connections instead of paying a new
// TLS handshake per call.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool with
// other pooled clients. Safe for concurrent use by multiple in-flight
// requests.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
