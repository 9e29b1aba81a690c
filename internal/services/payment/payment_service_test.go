package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/testutil/fixtures"
	"github.com/kevin07696/order-payment-service/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestPaymentFlow_ReturnSuccess runs an order of 150,000 VND from payment URL to confirmed
func TestPaymentFlow_ReturnSuccess(t *testing.T) {
	order := fixtures.NewOrder().WithTotal(150000).WithoutPaymentRef().Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)

	payURL, err := env.service.CreatePaymentURL(context.Background(), order.ID, "::1")
	require.NoError(t, err)
	assert.Equal(t, "ORD202610180001", payURL.TxnRef)
	assert.Equal(t, int64(150000), payURL.Amount)

	u, err := url.Parse(payURL.URL)
	require.NoError(t, err)
	sent, err := vnpay.ParseQuery(u.RawQuery)
	require.NoError(t, err)
	assert.Equal(t, "15000000", sent[vnpay.ParamAmount])

	out, err := env.service.HandleReturn(context.Background(), callback(sent[vnpay.ParamTxnRef], sent[vnpay.ParamAmount], "00"))
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, OutcomePaid, out.Outcome)
	assert.Equal(t, "ORD-20261018-0001", out.OrderNumber)
	assert.Equal(t, "Payment successful", out.Message)

	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, domain.PaymentCodeVNPay, stored.PaymentCode)

	cart, err := env.cache.Get(context.Background(), order.UserID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty(), "cart should be empty after payment")
}

// TestPaymentFlow_ReturnAfterIPN tests that the browser still sees success when the IPN won
func TestPaymentFlow_ReturnAfterIPN(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)
	params := callback(order.PaymentRef, "15000000", "00")

	resp := env.service.HandleNotification(context.Background(), params)
	assert.Equal(t, IPNResponse{RspCode: "00", Message: "Confirm Success"}, resp)

	out, err := env.service.HandleReturn(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, OutcomeAlreadyProcessed, out.Outcome)
	assert.Equal(t, "Order already paid", out.Message)
	assert.Equal(t, 1, env.orders.Writes)
}

func TestHandleReturn_Failures(t *testing.T) {
	tests := []struct {
		name        string
		params      func(ref string) map[string]string
		wantOutcome Outcome
		wantMessage string
		wantStatus  domain.PaymentStatus
	}{
		{
			name:        "payer cancelled",
			params:      func(ref string) map[string]string { return callback(ref, "15000000", "24") },
			wantOutcome: OutcomeFailed,
			wantMessage: "Payment was cancelled.",
			wantStatus:  domain.PaymentStatusFailed,
		},
		{
			name: "forged signature",
			params: func(ref string) map[string]string {
				p := callback(ref, "15000000", "00")
				p[vnpay.ParamSecureHash] = vnpay.Sign(p, []byte("wrong"))
				return p
			},
			wantOutcome: OutcomeRejected,
			wantMessage: "Invalid payment signature",
			wantStatus:  domain.PaymentStatusPending,
		},
		{
			name:        "unknown reference",
			params:      func(string) map[string]string { return callback("NOPE", "15000000", "00") },
			wantOutcome: OutcomeRejected,
			wantMessage: "Order not found",
			wantStatus:  domain.PaymentStatusPending,
		},
		{
			name:        "amount differs",
			params:      func(ref string) map[string]string { return callback(ref, "100", "00") },
			wantOutcome: OutcomeRejected,
			wantMessage: "Invalid payment amount",
			wantStatus:  domain.PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := fixtures.NewOrder().Build()
			env := newTestEnv(t, order)

			out, err := env.service.HandleReturn(context.Background(), tt.params(order.PaymentRef))
			require.NoError(t, err)

			assert.False(t, out.Success)
			assert.Equal(t, tt.wantOutcome, out.Outcome)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.Equal(t, tt.wantStatus, env.orders.Order(order.ID).PaymentStatus)
		})
	}
}

func TestHandleNotification_ResponseCodes(t *testing.T) {
	tests := []struct {
		name       string
		order      *domain.Order
		params     func(ref string) map[string]string
		wantCode   string
		wantStatus domain.PaymentStatus
	}{
		{
			name:       "success",
			order:      fixtures.NewOrder().Build(),
			params:     func(ref string) map[string]string { return callback(ref, "15000000", "00") },
			wantCode:   vnpay.RspCodeConfirmSuccess,
			wantStatus: domain.PaymentStatusPaid,
		},
		{
			name:       "valid failure is acknowledged",
			order:      fixtures.NewOrder().Build(),
			params:     func(ref string) map[string]string { return callback(ref, "15000000", "51") },
			wantCode:   vnpay.RspCodeConfirmSuccess,
			wantStatus: domain.PaymentStatusFailed,
		},
		{
			name:       "order not found",
			order:      fixtures.NewOrder().Build(),
			params:     func(string) map[string]string { return callback("ORD999", "15000000", "00") },
			wantCode:   vnpay.RspCodeOrderNotFound,
			wantStatus: domain.PaymentStatusPending,
		},
		{
			name:       "already confirmed",
			order:      fixtures.PaidOrder(),
			params:     func(ref string) map[string]string { return callback(ref, "15000000", "00") },
			wantCode:   vnpay.RspCodeAlreadyConfirmed,
			wantStatus: domain.PaymentStatusPaid,
		},
		{
			name:       "amount mismatch",
			order:      fixtures.NewOrder().Build(),
			params:     func(ref string) map[string]string { return callback(ref, "10000000", "00") },
			wantCode:   vnpay.RspCodeInvalidAmount,
			wantStatus: domain.PaymentStatusPending,
		},
		{
			name:  "invalid signature",
			order: fixtures.NewOrder().Build(),
			params: func(ref string) map[string]string {
				p := callback(ref, "15000000", "00")
				p[vnpay.ParamResponseCode] = "00 "
				return p
			},
			wantCode:   vnpay.RspCodeInvalidSignature,
			wantStatus: domain.PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.order)

			resp := env.service.HandleNotification(context.Background(), tt.params(tt.order.PaymentRef))

			assert.Equal(t, tt.wantCode, resp.RspCode)
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, tt.wantStatus, env.orders.Order(tt.order.ID).PaymentStatus)
		})
	}
}

// TestHandleNotification_AmountMismatch tests the 100,000 against 150,000 scenario
func TestHandleNotification_AmountMismatch(t *testing.T) {
	order := fixtures.NewOrder().WithTotal(150000).Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)

	resp := env.service.HandleNotification(context.Background(), callback(order.PaymentRef, "10000000", "00"))

	assert.Equal(t, "04", resp.RspCode)
	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Empty(t, stored.PaymentMeta)
	assert.Equal(t, 1, env.carts.ItemCount(order.UserID))
}

func TestHandleNotification_StoreError(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	repo.On("GetByPaymentRef", mock.Anything, "ORD1").Return(nil, domain.ErrDatabaseError)

	env := newTestEnv(t)
	svc := NewService(repo, env.service.gateway, env.recon, zaptest.NewLogger(t), "VND")

	resp := svc.HandleNotification(context.Background(), callback("ORD1", "15000000", "00"))

	assert.Equal(t, IPNResponse{RspCode: "99", Message: "Unknown error"}, resp)
	repo.AssertExpectations(t)
}

// TestCreatePaymentURL_RetryAfterFailure tests that a failed order can be paid on a second attempt
func TestCreatePaymentURL_RetryAfterFailure(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)

	resp := env.service.HandleNotification(context.Background(), callback(order.PaymentRef, "15000000", "24"))
	require.Equal(t, "00", resp.RspCode)
	require.Equal(t, domain.PaymentStatusFailed, env.orders.Order(order.ID).PaymentStatus)

	payURL, err := env.service.CreatePaymentURL(context.Background(), order.ID, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, env.orders.Order(order.ID).PaymentStatus)

	resp = env.service.HandleNotification(context.Background(), callbackAttempt(payURL.TxnRef, "15000000", "00", "14123457"))
	assert.Equal(t, "00", resp.RspCode)

	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Len(t, stored.PaymentMeta, 2)
}

// TestHandleNotification_StaleFailureAfterRetry tests that a redelivered failure from the first
// attempt cannot fail the second attempt
func TestHandleNotification_StaleFailureAfterRetry(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)

	failed := callbackAttempt(order.PaymentRef, "15000000", "24", "14123456")
	resp := env.service.HandleNotification(context.Background(), failed)
	require.Equal(t, "00", resp.RspCode)
	require.Equal(t, domain.PaymentStatusFailed, env.orders.Order(order.ID).PaymentStatus)

	payURL, err := env.service.CreatePaymentURL(context.Background(), order.ID, "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPending, env.orders.Order(order.ID).PaymentStatus)

	resp = env.service.HandleNotification(context.Background(), failed)
	assert.Equal(t, "02", resp.RspCode)
	assert.Equal(t, domain.PaymentStatusPending, env.orders.Order(order.ID).PaymentStatus)

	resp = env.service.HandleNotification(context.Background(), callbackAttempt(payURL.TxnRef, "15000000", "00", "14999999"))
	assert.Equal(t, "00", resp.RspCode)

	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, "14999999", stored.TransactionID)
	assert.Len(t, stored.PaymentMeta, 2)
	assert.Equal(t, 0, env.carts.ItemCount(order.UserID))
}

func TestCreatePaymentURL_Rejections(t *testing.T) {
	t.Run("paid order", func(t *testing.T) {
		order := fixtures.PaidOrder()
		env := newTestEnv(t, order)

		_, err := env.service.CreatePaymentURL(context.Background(), order.ID, "")
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAlreadyProcessed))
	})

	t.Run("zero total", func(t *testing.T) {
		order := fixtures.NewOrder().WithTotal(0).Build()
		env := newTestEnv(t, order)

		_, err := env.service.CreatePaymentURL(context.Background(), order.ID, "")
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidAmount))
	})

	t.Run("unknown order", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.CreatePaymentURL(context.Background(), uuid.New(), "")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		received string
		total    int64
		wantCode domain.ErrorCode
	}{
		{"15000000", 150000, ""},
		{"10000000", 150000, domain.ErrorCodeAmountMismatch},
		{"15000050", 150000, domain.ErrorCodeAmountMismatch},
		{"1500000000", 150000, domain.ErrorCodeAmountMismatch},
		{"abc", 150000, domain.ErrorCodeAmountMismatch},
		{"", 150000, domain.ErrorCodeAmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.received, func(t *testing.T) {
			err := checkAmount(tt.received, tt.total)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, domain.GetErrorCode(err))
		})
	}
}
