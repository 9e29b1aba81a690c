package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kevin07696/order-payment-service/internal/middleware"
	pkgmiddleware "github.com/kevin07696/order-payment-service/pkg/middleware"
	"github.com/kevin07696/order-payment-service/pkg/observability"
	"go.uber.org/zap"
)

const (
	// APIPrefix is where every route is mounted
	APIPrefix = "/api/v1"

	// CallbackPrefix covers the return and IPN paths VNPay redirects to
	CallbackPrefix = APIPrefix + "/payments/vnpay/"
)

// RouterConfig holds the middleware the router is assembled from.
// TrustedProxies, RateLimiter and IPNAllowlist are optional. Without TrustedProxies
// forwarding headers are never honored and RemoteAddr is the connection peer.
type RouterConfig struct {
	Logger         *zap.Logger
	IsDevelopment  bool
	TrustedProxies func(http.Handler) http.Handler
	RateLimiter    func(http.Handler) http.Handler
	IPNAllowlist   func(http.Handler) http.Handler
}

// NewRouter builds the public HTTP router
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Runs before routing so /return&vnp_... resolves to the return route
	r.Use(middleware.NewCallbackRepair(CallbackPrefix, cfg.Logger).Middleware)
	r.Use(chimiddleware.RequestID)
	if cfg.TrustedProxies != nil {
		r.Use(cfg.TrustedProxies)
	}
	r.Use(pkgmiddleware.Recoverer(cfg.Logger))
	r.Use(pkgmiddleware.RequestLogger(cfg.Logger))
	r.Use(observability.HTTPMiddleware)
	r.Use(middleware.NewSecurityHeaders(cfg.IsDevelopment).Middleware)

	r.Route(APIPrefix, func(r chi.Router) {
		h.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter)
			}

			var ipn []func(http.Handler) http.Handler
			if cfg.IPNAllowlist != nil {
				ipn = append(ipn, cfg.IPNAllowlist)
			}
			h.RegisterCallbackRoutes(r, ipn...)
		})
	})

	return r
}
