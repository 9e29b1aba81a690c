package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"github.com/kevin07696/order-payment-service/internal/domain"
	domainports "github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/kevin07696/order-payment-service/pkg/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentURL is what the storefront needs to send the payer to the processor
type PaymentURL struct {
	URL    string `json:"paymentUrl"`
	TxnRef string `json:"txnRef"`
	Amount int64  `json:"amount"`
}

// ReturnOutcome is the user-facing summary of a browser return
type ReturnOutcome struct {
	OrderNumber string
	Message     string
	Outcome     Outcome
	Success     bool
}

// IPNResponse is the acknowledgement body VNPay expects from the IPN endpoint
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Service drives the redirect payment flow for orders
type Service struct {
	orders     domainports.OrderRepository
	gateway    ports.PaymentGateway
	reconciler *Reconciler
	logger     *zap.Logger
	currency   string
}

// NewService creates a new payment service
func NewService(
	orders domainports.OrderRepository,
	gateway ports.PaymentGateway,
	reconciler *Reconciler,
	logger *zap.Logger,
	currency string,
) *Service {
	return &Service{
		orders:     orders,
		gateway:    gateway,
		reconciler: reconciler,
		logger:     logger,
		currency:   currency,
	}
}

// CreatePaymentURL signs a redirect for the order and records its transaction reference.
// A FAILED order is moved back to PENDING so the next processor result can settle it.
func (s *Service) CreatePaymentURL(ctx context.Context, orderID uuid.UUID, clientIP string) (*PaymentURL, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsPayable() {
		observability.RecordPaymentRequest(domain.PaymentCodeVNPay, "rejected")
		return nil, domain.ErrAlreadyProcessed.
			WithDetail("order_id", order.ID.String()).
			WithDetail("payment_status", string(order.PaymentStatus))
	}

	req, err := s.gateway.BuildPaymentRequest(ports.OrderSnapshot{
		OrderNumber: order.OrderNumber,
		Description: "Thanh toan don hang " + order.OrderNumber,
		ClientIP:    clientIP,
		Amount:      order.Total,
	})
	if err != nil {
		observability.RecordPaymentRequest(domain.PaymentCodeVNPay, "rejected")
		return nil, err
	}

	swapped, err := s.orders.CompareAndSwapPayment(ctx, order.ID, order.PaymentStatus, domain.PaymentUpdate{
		PaymentStatus: domain.PaymentStatusPending,
		PaymentRef:    req.TxnRef,
		PaymentCode:   domain.PaymentCodeVNPay,
	})
	if err != nil {
		return nil, err
	}
	if !swapped {
		observability.RecordPaymentRequest(domain.PaymentCodeVNPay, "rejected")
		return nil, domain.ErrAlreadyProcessed.WithDetail("order_id", order.ID.String())
	}

	if order.PaymentStatus == domain.PaymentStatusFailed {
		s.logger.Info("Retrying payment for failed order",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
		)
	}
	observability.RecordPaymentRequest(domain.PaymentCodeVNPay, "created")

	return &PaymentURL{
		URL:    req.URL,
		TxnRef: req.TxnRef,
		Amount: order.Total,
	}, nil
}

// HandleReturn verifies the browser redirect and applies it to the order.
// Only infrastructure failures are returned as errors; everything else is an outcome.
func (s *Service) HandleReturn(ctx context.Context, params map[string]string) (*ReturnOutcome, error) {
	result := s.gateway.VerifyReturn(params)
	if !result.IsValid {
		observability.RecordSignatureFailure(string(domain.PaymentChannelReturn))
		observability.RecordReconciliation(string(domain.PaymentChannelReturn), string(OutcomeRejected), 0)
		return &ReturnOutcome{Outcome: OutcomeRejected, Message: "Invalid payment signature"}, nil
	}

	order, err := s.orders.GetByPaymentRef(ctx, result.TransactionRef)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("Return callback for unknown order",
				zap.String("txn_ref", result.TransactionRef),
				zap.String("error_code", string(domain.ErrorCodeOrderNotFound)),
			)
			return &ReturnOutcome{Outcome: OutcomeRejected, Message: "Order not found"}, nil
		}
		return nil, err
	}

	if err := checkAmount(result.Amount, order.Total); err != nil {
		observability.RecordAmountMismatch()
		s.logger.Warn("Return callback amount does not match order",
			zap.String("order_id", order.ID.String()),
			zap.String("received_amount", result.Amount),
			zap.Int64("order_total", order.Total),
			zap.Error(err),
		)
		return &ReturnOutcome{OrderNumber: order.OrderNumber, Outcome: OutcomeRejected, Message: "Invalid payment amount"}, nil
	}

	rr, err := s.reconciler.Reconcile(ctx, order, result, domain.PaymentChannelReturn)
	if err != nil {
		return nil, fmt.Errorf("reconcile return: %w", err)
	}

	switch rr.Outcome {
	case OutcomePaid:
		observability.RecordConfirmedAmount(s.currency, rr.Order.Total)
	case OutcomeFailed:
		s.logDecline(rr.Order, result, domain.PaymentChannelReturn)
	}

	return &ReturnOutcome{
		OrderNumber: rr.Order.OrderNumber,
		Outcome:     rr.Outcome,
		Success:     rr.Order.PaymentStatus == domain.PaymentStatusPaid,
		Message:     returnMessage(rr, result),
	}, nil
}

// HandleNotification verifies a server-to-server notification and applies it.
// It never fails: every path maps to a response code VNPay understands.
func (s *Service) HandleNotification(ctx context.Context, params map[string]string) IPNResponse {
	resp := s.handleNotification(ctx, params)
	observability.RecordIPNResponse(resp.RspCode)
	return resp
}

func (s *Service) handleNotification(ctx context.Context, params map[string]string) IPNResponse {
	result := s.gateway.VerifyNotification(params)
	if !result.IsValid {
		observability.RecordSignatureFailure(string(domain.PaymentChannelIPN))
		observability.RecordReconciliation(string(domain.PaymentChannelIPN), string(OutcomeRejected), 0)
		return IPNResponse{RspCode: vnpay.RspCodeInvalidSignature, Message: "Invalid signature"}
	}

	order, err := s.orders.GetByPaymentRef(ctx, result.TransactionRef)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("IPN for unknown order",
				zap.String("txn_ref", result.TransactionRef),
				zap.String("error_code", string(domain.ErrorCodeOrderNotFound)),
			)
			return IPNResponse{RspCode: vnpay.RspCodeOrderNotFound, Message: "Order not found"}
		}
		s.logger.Error("Failed to load order for IPN",
			zap.String("txn_ref", result.TransactionRef),
			zap.Error(err),
		)
		return IPNResponse{RspCode: vnpay.RspCodeUnknownError, Message: "Unknown error"}
	}

	if err := checkAmount(result.Amount, order.Total); err != nil {
		observability.RecordAmountMismatch()
		s.logger.Warn("IPN amount does not match order",
			zap.String("order_id", order.ID.String()),
			zap.String("received_amount", result.Amount),
			zap.Int64("order_total", order.Total),
			zap.String("error_code", string(domain.ErrorCodeAmountMismatch)),
		)
		return IPNResponse{RspCode: vnpay.RspCodeInvalidAmount, Message: "Invalid amount"}
	}

	rr, err := s.reconciler.Reconcile(ctx, order, result, domain.PaymentChannelIPN)
	if err != nil {
		s.logger.Error("Failed to reconcile IPN",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return IPNResponse{RspCode: vnpay.RspCodeUnknownError, Message: "Unknown error"}
	}

	switch rr.Outcome {
	case OutcomePaid:
		observability.RecordConfirmedAmount(s.currency, rr.Order.Total)
		return IPNResponse{RspCode: vnpay.RspCodeConfirmSuccess, Message: "Confirm Success"}
	case OutcomeFailed:
		s.logDecline(rr.Order, result, domain.PaymentChannelIPN)
		// A valid failure is still a successful acknowledgement
		return IPNResponse{RspCode: vnpay.RspCodeConfirmSuccess, Message: "Confirm Success"}
	default:
		return IPNResponse{RspCode: vnpay.RspCodeAlreadyConfirmed, Message: "Order already confirmed"}
	}
}

func (s *Service) logDecline(order *domain.Order, result *ports.VerificationResult, channel domain.PaymentChannel) {
	code := result.ProcessorCode
	if code == vnpay.ResponseCodeSuccess {
		// Approved response code with a failed vnp_TransactionStatus
		code = result.Params[vnpay.ParamTransactionStatus]
	}
	var processorMessage string
	if status := result.Params[vnpay.ParamTransactionStatus]; status != "" {
		processorMessage = "transaction status " + status
	}
	perr := vnpay.GetResponseCode(code).ToPaymentError(processorMessage)

	s.logger.Info("Payment declined by processor",
		zap.String("order_id", order.ID.String()),
		zap.String("channel", string(channel)),
		zap.String("response_code", perr.Code),
		zap.String("category", string(perr.Category)),
		zap.Bool("retriable", perr.IsRetriable),
		zap.Error(perr),
	)
}

// checkAmount compares VNPay minor units with the stored whole-unit total exactly
func checkAmount(received string, total int64) error {
	amount, err := decimal.NewFromString(received)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeAmountMismatch, "amount is not numeric", err).
			WithDetail("received", received)
	}
	if !amount.Div(decimal.NewFromInt(vnpay.AmountMultiplier)).Equal(decimal.NewFromInt(total)) {
		return domain.ErrAmountMismatch.
			WithDetail("received", received).
			WithDetail("expected", total)
	}
	return nil
}

func returnMessage(rr *ReconcileResult, result *ports.VerificationResult) string {
	switch rr.Outcome {
	case OutcomePaid:
		return "Payment successful"
	case OutcomeFailed:
		info := vnpay.GetResponseCode(result.ProcessorCode)
		if info.IsApproved {
			// Response code 00 with a failed vnp_TransactionStatus
			return "Payment failed. Please try again."
		}
		return info.UserMessage
	default:
		if rr.Order.PaymentStatus == domain.PaymentStatusPaid {
			return "Order already paid"
		}
		return "Payment already processed"
	}
}
