package ports

import (
	"time"
)

// OrderSnapshot is the part of an order a payment request is built from
type OrderSnapshot struct {
	OrderNumber string // Human-readable order number, e.g. ORD-20261018-0001
	Description string // Free text shown on the processor page
	ClientIP    string // Payer's IP as seen by the HTTP layer
	Amount      int64  // Order total in whole currency units
}

// SignedRequest is a fully signed redirect to the processor's pay page.
// It is never persisted.
type SignedRequest struct {
	CreatedAt time.Time
	Params    map[string]string // Canonical fields, without the signature
	Canonical string            // Exact bytes that were signed
	Signature string            // Lowercase hex HMAC-SHA512
	URL       string            // Pay endpoint with encoded query and trailing signature
	TxnRef    string            // Transaction reference echoed back by the processor
	Amount    int64             // Amount in processor minor units
}

// VerificationResult is the classified outcome of a processor callback.
// Return and notification channels produce the same shape.
type VerificationResult struct {
	Params         map[string]string // Raw received parameters, kept for audit
	TransactionRef string            // vnp_TxnRef
	Amount         string            // vnp_Amount as received, in processor minor units
	ProcessorCode  string            // vnp_ResponseCode
	TransactionNo  string            // vnp_TransactionNo
	BankTranNo     string            // vnp_BankTranNo
	Signature      string            // vnp_SecureHash as received
	IsValid        bool              // Signature matched
	IsSuccess      bool              // Signature matched and processor reported success
}

// PaymentGateway defines the port for the redirect payment processor.
// Verification never returns an error: a bad payload is an invalid result.
type PaymentGateway interface {
	// BuildPaymentRequest signs a redirect request for the order
	// Returns domain.ErrInvalidAmount if the amount is not positive
	BuildPaymentRequest(order OrderSnapshot) (*SignedRequest, error)

	// VerifyReturn classifies a browser-redirect callback
	VerifyReturn(params map[string]string) *VerificationResult

	// VerifyNotification classifies a server-to-server notification
	VerifyNotification(params map[string]string) *VerificationResult
}
