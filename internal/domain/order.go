package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment lifecycle of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentStatus is the payment lifecycle of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentCodeVNPay identifies orders paid through the VNPay redirect flow
const PaymentCodeVNPay = "vnpay"

// paymentTransitions is the forward-only payment lattice.
// FAILED -> PENDING exists only for an explicit retry of the payment request.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPending},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// CanTransitionTo reports whether the lattice allows moving from s to next
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanUpdateTo reports whether a conditional write from s to next is allowed.
// PENDING to PENDING only re-records the payment reference for a new request.
func (s PaymentStatus) CanUpdateTo(next PaymentStatus) bool {
	if s == PaymentStatusPending && next == PaymentStatusPending {
		return true
	}
	return s.CanTransitionTo(next)
}

// ValidatePaymentUpdate rejects writes the payment lattice forbids
func ValidatePaymentUpdate(expected PaymentStatus, update PaymentUpdate) error {
	if !expected.CanUpdateTo(update.PaymentStatus) {
		return ErrInvalidTransition.
			WithDetail("from", string(expected)).
			WithDetail("to", string(update.PaymentStatus))
	}
	return nil
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentChannel names where a processor result came from
type PaymentChannel string

const (
	PaymentChannelReturn PaymentChannel = "return"
	PaymentChannelIPN    PaymentChannel = "ipn"
)

// PaymentMetaEntry is one raw processor payload kept for audit.
// TransactionNo and Signature identify the payload when it is redelivered.
type PaymentMetaEntry struct {
	Channel       PaymentChannel    `json:"channel"`
	ReceivedAt    time.Time         `json:"received_at"`
	TransactionNo string            `json:"transaction_no,omitempty"`
	Signature     string            `json:"signature,omitempty"`
	Params        map[string]string `json:"params"`
}

// noTransactionNo is what VNPay sends when no transaction was created, e.g. on cancel
const noTransactionNo = "0"

// Order is the aggregate the payment flow reconciles.
// Total is in minor currency units (VND has no subunit, so it is whole dong).
type Order struct {
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	PaymentMeta   []PaymentMetaEntry `json:"payment_meta"`
	OrderNumber   string             `json:"order_number"`
	PaymentCode   string             `json:"payment_code"`
	PaymentRef    string             `json:"payment_ref"`
	TransactionID string             `json:"transaction_id"`
	Status        OrderStatus        `json:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	Total         int64              `json:"total"`
	ID            uuid.UUID          `json:"id"`
	UserID        uuid.UUID          `json:"user_id"`
}

// IsPayable returns true if a new payment request may be issued for the order
func (o *Order) IsPayable() bool {
	return o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed
}

// IsSettled returns true once the reconciler must no longer act on the order
func (o *Order) IsSettled() bool {
	return o.PaymentStatus != PaymentStatusPending
}

// HasRecordedResult reports whether a processor result was already applied to the order.
// A result matches a recorded one by signature, or by processor transaction number when
// the processor assigned one.
func (o *Order) HasRecordedResult(transactionNo, signature string) bool {
	for _, entry := range o.PaymentMeta {
		if signature != "" && entry.Signature == signature {
			return true
		}
		if transactionNo != "" && transactionNo != noTransactionNo && entry.TransactionNo == transactionNo {
			return true
		}
	}
	return false
}

// PaymentUpdate describes a conditional write against an order's payment state.
// TransactionID is applied only if the stored value is empty.
type PaymentUpdate struct {
	Meta          *PaymentMetaEntry
	Status        *OrderStatus
	PaymentStatus PaymentStatus
	TransactionID string
	PaymentRef    string
	PaymentCode   string
}
