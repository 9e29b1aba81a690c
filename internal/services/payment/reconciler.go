package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"github.com/kevin07696/order-payment-service/internal/domain"
	domainports "github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/kevin07696/order-payment-service/pkg/observability"
	"github.com/kevin07696/order-payment-service/pkg/timeutil"
	"go.uber.org/zap"
)

// Outcome is what a reconciliation attempt did to the order
type Outcome string

const (
	OutcomePaid             Outcome = "paid"
	OutcomeFailed           Outcome = "failed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeRejected         Outcome = "rejected"
)

// CartClearer empties a user's cart after a confirmed payment
type CartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ReconcileResult carries the outcome and the order as it stands afterwards
type ReconcileResult struct {
	Order   *domain.Order
	Outcome Outcome
}

// Reconciler applies verified processor results to orders.
// It keeps no state between calls: the conditional write against the store is
// what guarantees a single effective transition per order.
type Reconciler struct {
	orders domainports.OrderRepository
	cart   CartClearer
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler creates a new order reconciler
func NewReconciler(orders domainports.OrderRepository, cart CartClearer, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orders: orders,
		cart:   cart,
		logger: logger,
		now:    timeutil.Now,
	}
}

// Reconcile moves a PENDING order to PAID or FAILED according to result.
// Orders in any other state, and orders another writer settled first, yield
// OutcomeAlreadyProcessed without error. Invalid results are never written.
func (r *Reconciler) Reconcile(ctx context.Context, order *domain.Order, result *ports.VerificationResult, channel domain.PaymentChannel) (*ReconcileResult, error) {
	start := r.now()
	res, err := r.reconcile(ctx, order, result, channel)
	if err == nil {
		observability.RecordReconciliation(string(channel), string(res.Outcome), r.now().Sub(start).Seconds())
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, order *domain.Order, result *ports.VerificationResult, channel domain.PaymentChannel) (*ReconcileResult, error) {
	if !result.IsValid {
		return &ReconcileResult{Order: order, Outcome: OutcomeRejected}, nil
	}

	if order.IsSettled() {
		r.logger.Info("Duplicate payment result - order already processed",
			zap.String("order_id", order.ID.String()),
			zap.String("channel", string(channel)),
			zap.String("payment_status", string(order.PaymentStatus)),
		)
		return &ReconcileResult{Order: order, Outcome: OutcomeAlreadyProcessed}, nil
	}

	// A result from an earlier attempt redelivered after a retry reopened the order
	if order.HasRecordedResult(result.TransactionNo, result.Signature) {
		r.logger.Info("Duplicate payment result - already recorded for an earlier attempt",
			zap.String("order_id", order.ID.String()),
			zap.String("channel", string(channel)),
			zap.String("transaction_no", result.TransactionNo),
		)
		return &ReconcileResult{Order: order, Outcome: OutcomeAlreadyProcessed}, nil
	}

	meta := &domain.PaymentMetaEntry{
		Channel:       channel,
		ReceivedAt:    r.now(),
		TransactionNo: result.TransactionNo,
		Signature:     result.Signature,
		Params:        result.Params,
	}

	update := domain.PaymentUpdate{Meta: meta}
	outcome := OutcomeFailed
	if result.IsSuccess {
		confirmed := domain.OrderStatusConfirmed
		update.PaymentStatus = domain.PaymentStatusPaid
		update.Status = &confirmed
		update.TransactionID = result.TransactionNo
		outcome = OutcomePaid
	} else {
		update.PaymentStatus = domain.PaymentStatusFailed
	}

	swapped, err := r.orders.CompareAndSwapPayment(ctx, order.ID, domain.PaymentStatusPending, update)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// The other channel settled the order between our read and write
		current, err := r.orders.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Lost reconciliation race - order already processed",
			zap.String("order_id", order.ID.String()),
			zap.String("channel", string(channel)),
			zap.String("payment_status", string(current.PaymentStatus)),
		)
		return &ReconcileResult{Order: current, Outcome: OutcomeAlreadyProcessed}, nil
	}

	settled := applyUpdate(order, update)

	r.logger.Info("Order payment reconciled",
		zap.String("order_id", settled.ID.String()),
		zap.String("order_number", settled.OrderNumber),
		zap.String("channel", string(channel)),
		zap.String("payment_status", string(settled.PaymentStatus)),
		zap.String("response_code", result.ProcessorCode),
		zap.String("transaction_no", result.TransactionNo),
	)

	if outcome == OutcomePaid {
		r.clearCart(ctx, settled)
	}

	return &ReconcileResult{Order: settled, Outcome: outcome}, nil
}

// clearCart runs after the payment write committed; its failure is logged and swallowed
func (r *Reconciler) clearCart(ctx context.Context, order *domain.Order) {
	if r.cart == nil {
		return
	}
	if err := r.cart.Clear(context.WithoutCancel(ctx), order.UserID); err != nil {
		observability.RecordSideEffectFailure("clear_cart")
		r.logger.Error("Failed to clear cart after payment (non-fatal)",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", order.UserID.String()),
			zap.String("error_code", string(domain.ErrorCodeSideEffectFailure)),
			zap.Error(err),
		)
	}
}

// applyUpdate mirrors the store's conditional write on an in-memory copy
func applyUpdate(order *domain.Order, update domain.PaymentUpdate) *domain.Order {
	o := *order
	o.PaymentStatus = update.PaymentStatus
	if update.Status != nil {
		o.Status = *update.Status
	}
	if o.TransactionID == "" {
		o.TransactionID = update.TransactionID
	}
	if update.PaymentRef != "" {
		o.PaymentRef = update.PaymentRef
	}
	if update.PaymentCode != "" {
		o.PaymentCode = update.PaymentCode
	}
	if update.Meta != nil {
		o.PaymentMeta = append(append([]domain.PaymentMetaEntry(nil), order.PaymentMeta...), *update.Meta)
	}
	return &o
}
