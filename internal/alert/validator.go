package alert

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

var (
	// ErrInvalidScheme is returned when URL scheme is not HTTPS.
	ErrInvalidScheme = errors.New("only HTTPS allowed")
	// ErrPrivateIP is returned when URL resolves to private IP.
	ErrPrivateIP = errors.New("private IP addresses not allowed")
	// ErrLocalhostBlocked is returned when localhost is used.
	ErrLocalhostBlocked = errors.New("localhost not allowed")
	// ErrInvalidPort is returned when non-standard port is used.
	ErrInvalidPort = errors.New("only port 443 allowed")
	// ErrInvalidURL is returned when URL parsing fails.
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrEmptyHost is returned when URL has no host.
	ErrEmptyHost = errors.New("URL must have a host")
)

// BlockedCIDRs contains private, shared and internal ranges.
var BlockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"100.64.0.0/10",  // Carrier-grade NAT
	"169.254.0.0/16", // Link-local, cloud metadata
	"0.0.0.0/8",
	"::1/128",
	"::/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedNetworks = mustParseCIDRs(BlockedCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("alert: bad CIDR %q: %v", cidr, err))
		}
		out = append(out, network)
	}
	return out
}

// lookupIP is swapped in tests.
var lookupIP = func(ctx context.Context, host string) ([]net.IP, error) {
	return net.DefaultResolver.LookupIP(ctx, "ip", host)
}

// ValidateTargetURL rejects webhook URLs that could reach internal services.
// With allowInsecure only the URL shape is checked, for local development.
func ValidateTargetURL(ctx context.Context, targetURL string, allowInsecure bool) error {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Opaque != "" {
		return ErrInvalidURL
	}

	host := parsed.Hostname()
	if allowInsecure {
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return ErrInvalidScheme
		}
		if host == "" {
			return ErrEmptyHost
		}
		return nil
	}

	if parsed.Scheme != "https" {
		return ErrInvalidScheme
	}
	if host == "" {
		return ErrEmptyHost
	}
	if isLocalhostHostname(host) {
		return ErrLocalhostBlocked
	}
	if port := parsed.Port(); port != "" && port != "443" {
		return ErrInvalidPort
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	ips, err := lookupIP(ctx, host)
	if err != nil {
		// Unresolvable now; the dialer re-checks at delivery time.
		return nil
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return ErrPrivateIP
		}
	}
	return nil
}

func isLocalhostHostname(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") ||
		host == "127.0.0.1" ||
		host == "::1"
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsMulticast() {
		return true
	}
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// dialControl refuses connections to blocked addresses after DNS resolution,
// closing the gap between validation and delivery.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && isBlockedIP(ip) {
		return ErrPrivateIP
	}
	return nil
}

// ExtractHost extracts host from URL for safe logging.
// Never log full URLs as they may contain secrets in path/query.
func ExtractHost(targetURL string) string {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "(invalid)"
	}
	return parsed.Host
}
