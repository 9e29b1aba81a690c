package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

// IPNAllowlist restricts the IPN endpoint to the processor's published source ranges.
// An empty allowlist admits every caller; the HMAC signature is still checked downstream.
type IPNAllowlist struct {
	prefixes []netip.Prefix
	logger   *zap.Logger
}

// NewIPNAllowlist parses entries that are either single IPs or CIDR ranges
func NewIPNAllowlist(entries []string, logger *zap.Logger) (*IPNAllowlist, error) {
	prefixes, err := parsePrefixes(entries, "IPN allowlist")
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded IPN allowlist", zap.Int("count", len(prefixes)))
	return &IPNAllowlist{prefixes: prefixes, logger: logger}, nil
}

// Allows reports whether ip may call the IPN endpoint
func (a *IPNAllowlist) Allows(ip string) bool {
	if len(a.prefixes) == 0 {
		return true
	}

	return containsIP(a.prefixes, ip)
}

// Middleware rejects callers outside the allowlist with 403
func (a *IPNAllowlist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteHost(r)
		if !a.Allows(ip) {
			a.logger.Warn("IPN from unauthorized IP",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// parsePrefixes reads single IPs or CIDR ranges, skipping blank entries
func parsePrefixes(entries []string, what string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid %s range %q: %w", what, entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid %s address %q: %w", what, entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes, nil
}

func containsIP(prefixes []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteHost is the host part of RemoteAddr, or RemoteAddr itself when it has no port
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
