package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/kevin07696/order-payment-service/pkg/timeutil"
)

const orderColumns = `id, user_id, order_number, total, status, payment_status,
	payment_code, payment_ref, transaction_id, payment_meta, created_at, updated_at`

// OrderRepository implements ports.OrderRepository on PostgreSQL
type OrderRepository struct {
	db ports.DBPort
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository
func NewOrderRepository(db ports.DBPort) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order. An empty OrderNumber is allocated from the
// per-day counter inside the same transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusPending
	}

	meta, err := marshalMeta(order.PaymentMeta)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if order.OrderNumber == "" {
			number, err := nextOrderNumber(ctx, tx, timeutil.Now())
			if err != nil {
				return err
			}
			order.OrderNumber = number
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, order_number, total, status, payment_status,
				payment_code, payment_ref, transaction_id, payment_meta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at`,
			order.ID, order.UserID, order.OrderNumber, order.Total, order.Status, order.PaymentStatus,
			order.PaymentCode, order.PaymentRef, order.TransactionID, meta,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return mapError(err, "create order")
		}
		return nil
	})
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	row := r.db.GetDB().QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, mapError(err, "get order").WithDetail("order_id", id.String())
	}
	return order, nil
}

// GetByPaymentRef retrieves an order by the transaction reference sent to the processor
func (r *OrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, domain.ErrOrderNotFound
	}

	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	row := r.db.GetDB().QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1`, ref)
	order, err := scanOrder(row)
	if err != nil {
		return nil, mapError(err, "get order by payment ref").WithDetail("txn_ref", ref)
	}
	return order, nil
}

// CompareAndSwapPayment applies update only while payment_status still equals expected.
// The status guard in the WHERE clause is what makes concurrent callbacks at-most-once.
func (r *OrderRepository) CompareAndSwapPayment(ctx context.Context, id uuid.UUID, expected domain.PaymentStatus, update domain.PaymentUpdate) (bool, error) {
	if err := domain.ValidatePaymentUpdate(expected, update); err != nil {
		return false, err
	}

	var meta []byte
	if update.Meta != nil {
		var err error
		meta, err = json.Marshal(update.Meta)
		if err != nil {
			return false, domain.WrapError(domain.ErrorCodeInternalError, "failed to encode payment meta", err)
		}
	}

	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	tag, err := r.db.GetDB().Exec(ctx, `
		UPDATE orders SET
			payment_status = $3,
			status = COALESCE($4, status),
			payment_ref = COALESCE(NULLIF($5, ''), payment_ref),
			payment_code = COALESCE(NULLIF($6, ''), payment_code),
			transaction_id = COALESCE(NULLIF(transaction_id, ''), $7),
			payment_meta = CASE WHEN $8::jsonb IS NULL THEN payment_meta
				ELSE payment_meta || jsonb_build_array($8::jsonb) END,
			updated_at = NOW()
		WHERE id = $1 AND payment_status = $2`,
		id, expected, update.PaymentStatus, status,
		update.PaymentRef, update.PaymentCode, update.TransactionID, meta,
	)
	if err != nil {
		return false, mapError(err, "update order payment")
	}
	return tag.RowsAffected() == 1, nil
}

// nextOrderNumber allocates ORD-YYYYMMDD-NNNN from the per-day counter
func nextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	day := timeutil.StartOfDay(now)

	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO order_number_counters (day, last_value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = order_number_counters.last_value + 1
		RETURNING last_value`, day,
	).Scan(&seq)
	if err != nil {
		return "", mapError(err, "allocate order number")
	}
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq), nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o    domain.Order
		meta []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.Total, &o.Status, &o.PaymentStatus,
		&o.PaymentCode, &o.PaymentRef, &o.TransactionID, &meta, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &o.PaymentMeta); err != nil {
			return nil, fmt.Errorf("decode payment meta: %w", err)
		}
	}
	return &o, nil
}

func marshalMeta(entries []domain.PaymentMetaEntry) ([]byte, error) {
	if entries == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to encode payment meta", err)
	}
	return b, nil
}

// mapError converts driver errors into domain errors
func mapError(err error, op string) *domain.DomainError {
	var de *domain.DomainError
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrOrderNotFound
	case isUniqueViolation(err):
		return domain.WrapError(domain.ErrorCodeValidationFailed, op+": duplicate order", err)
	default:
		return domain.WrapError(domain.ErrorCodeDatabaseError, op+" failed", err)
	}
}
