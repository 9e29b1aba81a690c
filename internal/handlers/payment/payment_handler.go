// Package payment exposes the VNPay redirect flow over HTTP.
//
// The return and IPN endpoints are called by VNPay and the payer's browser, not by
// authenticated clients; trust comes from the HMAC signature checked in the service.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"github.com/kevin07696/order-payment-service/internal/domain"
	paymentsvc "github.com/kevin07696/order-payment-service/internal/services/payment"
	pkgerrors "github.com/kevin07696/order-payment-service/pkg/errors"
	"go.uber.org/zap"
)

// maxIPNBodySize bounds form-encoded IPN bodies
const maxIPNBodySize = 16 * 1024

// PaymentService is the subset of the payment service the handler drives
type PaymentService interface {
	CreatePaymentURL(ctx context.Context, orderID uuid.UUID, clientIP string) (*paymentsvc.PaymentURL, error)
	HandleReturn(ctx context.Context, params map[string]string) (*paymentsvc.ReturnOutcome, error)
	HandleNotification(ctx context.Context, params map[string]string) paymentsvc.IPNResponse
}

// CartReader serves carts through the read-through cache
type CartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
}

// Handler serves the payment URL, return and IPN endpoints
type Handler struct {
	service   PaymentService
	carts     CartReader
	logger    *zap.Logger
	resultURL string
}

// NewHandler creates a new payment handler.
// resultURL is the storefront page browsers are redirected to after a return.
func NewHandler(service PaymentService, carts CartReader, logger *zap.Logger, resultURL string) *Handler {
	return &Handler{
		service:   service,
		carts:     carts,
		logger:    logger,
		resultURL: resultURL,
	}
}

// RegisterRoutes mounts the storefront-facing endpoints
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{orderID}/payment-url", h.CreatePaymentURL)
	r.Get("/users/{userID}/cart", h.GetCart)
}

// RegisterCallbackRoutes mounts the endpoints VNPay calls.
// ipnMiddlewares wrap only the IPN route; the return route is hit by browsers.
func (h *Handler) RegisterCallbackRoutes(r chi.Router, ipnMiddlewares ...func(http.Handler) http.Handler) {
	r.Get("/payments/vnpay/return", h.Return)

	ipn := r.With(ipnMiddlewares...)
	ipn.Get("/payments/vnpay/ipn", h.IPN)
	ipn.Post("/payments/vnpay/ipn", h.IPN)
}

// CreatePaymentURL signs a VNPay redirect for the order.
// Endpoint: POST /api/v1/orders/{orderID}/payment-url
func (h *Handler) CreatePaymentURL(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, pkgerrors.NewValidationError("orderID", "must be a UUID"))
		return
	}

	result, err := h.service.CreatePaymentURL(r.Context(), orderID, clientIP(r))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to create payment URL",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Return handles the payer's browser coming back from VNPay and redirects it
// to the storefront result page.
// Endpoint: GET /api/v1/payments/vnpay/return
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	params, err := vnpay.ParseQuery(r.URL.RawQuery)
	if err != nil {
		h.logger.Warn("Unparseable return callback", zap.Error(err))
		h.redirect(w, r, false, "", "Invalid payment callback")
		return
	}

	outcome, err := h.service.HandleReturn(r.Context(), params)
	if err != nil {
		h.logger.Error("Failed to process return callback",
			zap.String("txn_ref", params[vnpay.ParamTxnRef]),
			zap.Error(err),
		)
		h.redirect(w, r, false, "", "Payment could not be processed. Please contact support.")
		return
	}

	h.redirect(w, r, outcome.Success, outcome.OrderNumber, outcome.Message)
}

// IPN handles the server-to-server notification. It always answers 200 with
// the JSON acknowledgement VNPay expects.
// Endpoint: GET|POST /api/v1/payments/vnpay/ipn
func (h *Handler) IPN(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxIPNBodySize)
	}
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Unparseable IPN request", zap.Error(err))
		writeJSON(w, http.StatusOK, paymentsvc.IPNResponse{
			RspCode: vnpay.RspCodeUnknownError,
			Message: "Invalid request",
		})
		return
	}

	resp := h.service.HandleNotification(r.Context(), vnpay.FirstValues(r.Form))
	writeJSON(w, http.StatusOK, resp)
}

// GetCart returns the user's cart through the cache.
// Endpoint: GET /api/v1/users/{userID}/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, pkgerrors.NewValidationError("userID", "must be a UUID"))
		return
	}

	cart, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load cart",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": cart.UserID,
		"items":  cart.Items,
		"total":  cart.Total(),
	})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, success bool, orderNumber, message string) {
	target, err := url.Parse(h.resultURL)
	if err != nil {
		h.logger.Error("Invalid payment result URL", zap.String("url", h.resultURL), zap.Error(err))
		http.Error(w, "payment result page is not configured", http.StatusInternalServerError)
		return
	}

	q := target.Query()
	q.Set("success", strconv.FormatBool(success))
	if orderNumber != "" {
		q.Set("orderReference", orderNumber)
	}
	q.Set("message", message)
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

// clientIP is the caller address after the trusted-proxy middleware has run
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusFor maps domain error codes to HTTP status codes
func statusFor(err error) int {
	var verr *pkgerrors.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}

	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeOrderNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeAlreadyProcessed, domain.ErrorCodeInvalidTransition:
		return http.StatusConflict
	case domain.ErrorCodeInvalidAmount, domain.ErrorCodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	detail := errorDetail{Code: string(domain.ErrorCodeInternalError), Message: "internal server error"}

	var (
		verr *pkgerrors.ValidationError
		derr *domain.DomainError
	)
	switch {
	case errors.As(err, &verr):
		detail = errorDetail{Code: string(domain.ErrorCodeValidationFailed), Message: verr.Error()}
	case errors.As(err, &derr) && status < http.StatusInternalServerError:
		detail = errorDetail{Code: string(derr.Code), Message: derr.Message}
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
