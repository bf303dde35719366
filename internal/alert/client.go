package alert

import (
	"net"
	"net/http"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 8 * time.Second
)

// Header names on alert requests.
const (
	HeaderSignature  = "X-XScan-Signature"
	HeaderTimestamp  = "X-XScan-Timestamp"
	HeaderDeliveryID = "X-XScan-Delivery-Id"
	userAgent        = "XScan-Alerts/1.0"
)

// NewHTTPClient creates the client used for alert delivery. It never follows
// redirects and, unless allowInsecure is set, refuses to dial private addresses.
func NewHTTPClient(allowInsecure bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if !allowInsecure {
		dialer.Control = dialControl
	}

	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// setAlertHeaders applies the signing headers to an outgoing request.
func setAlertHeaders(req *http.Request, signature, timestamp, deliveryID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderDeliveryID, deliveryID)
	req.Header.Set("User-Agent", userAgent)
}
