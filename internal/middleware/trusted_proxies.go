package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

// TrustedProxies rewrites RemoteAddr from forwarding headers, but only when the
// connection comes from a configured proxy. Headers from any other peer are ignored.
type TrustedProxies struct {
	prefixes []netip.Prefix
	logger   *zap.Logger
}

// NewTrustedProxies parses proxy IPs or CIDR ranges. An empty list trusts no proxy.
func NewTrustedProxies(entries []string, logger *zap.Logger) (*TrustedProxies, error) {
	prefixes, err := parsePrefixes(entries, "trusted proxy")
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded trusted proxies", zap.Int("count", len(prefixes)))
	return &TrustedProxies{prefixes: prefixes, logger: logger}, nil
}

// Trusts reports whether ip is one of the configured proxies
func (p *TrustedProxies) Trusts(ip string) bool {
	return containsIP(p.prefixes, ip)
}

// ClientIP returns the caller address for r. Forwarding headers count only when
// the peer is trusted; X-Forwarded-For is read right to left, skipping trusted hops.
func (p *TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !p.Trusts(peer) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			client = hop
			if !p.Trusts(hop) {
				break
			}
		}
		if client != "" {
			return client
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}
	return peer
}

// Middleware replaces RemoteAddr with the resolved client address
func (p *TrustedProxies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peer := remoteHost(r)
		client := p.ClientIP(r)

		if client != peer {
			_, port, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				r.RemoteAddr = client
			} else {
				r.RemoteAddr = net.JoinHostPort(client, port)
			}
		} else if !p.Trusts(peer) && (r.Header.Get("X-Forwarded-For") != "" || r.Header.Get("X-Real-IP") != "") {
			p.logger.Debug("Ignoring forwarding headers from untrusted peer",
				zap.String("peer", peer),
				zap.String("path", r.URL.Path),
			)
		}

		next.ServeHTTP(w, r)
	})
}
