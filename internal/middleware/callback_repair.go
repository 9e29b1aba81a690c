package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"go.uber.org/zap"
)

// CallbackRepair rewrites callback URLs of the form /return&vnp_a=1 into
// /return?vnp_a=1 before routing. VNPay produces this shape when the configured
// return URL has no query string and it appends parameters with '&'.
type CallbackRepair struct {
	prefix string
	logger *zap.Logger
}

// NewCallbackRepair repairs only paths under prefix
func NewCallbackRepair(prefix string, logger *zap.Logger) *CallbackRepair {
	return &CallbackRepair{prefix: prefix, logger: logger}
}

// Middleware wraps an HTTP handler with the URL repair
func (cr *CallbackRepair) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery == "" && strings.HasPrefix(r.URL.Path, cr.prefix) {
			if path, rawQuery, ok := vnpay.SplitMalformedPath(r.URL.EscapedPath()); ok {
				unescaped, err := url.PathUnescape(path)
				if err == nil {
					cr.logger.Debug("Repaired malformed callback URL",
						zap.String("path", unescaped),
					)
					u := *r.URL
					u.Path = unescaped
					u.RawPath = ""
					u.RawQuery = rawQuery
					r2 := r.Clone(r.Context())
					r2.URL = &u
					r2.RequestURI = u.RequestURI()
					r = r2
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}
