package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/testutil/fixtures"
	"github.com/kevin07696/order-payment-service/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func successResult(order *domain.Order) *ports.VerificationResult {
	params := callback(order.PaymentRef, "15000000", "00")
	return &ports.VerificationResult{
		Params:         params,
		TransactionRef: order.PaymentRef,
		Amount:         "15000000",
		ProcessorCode:  "00",
		TransactionNo:  "14123456",
		IsValid:        true,
		IsSuccess:      true,
	}
}

// TestReconciler_ConcurrentSuccess applies the same success result from many goroutines at once
func TestReconciler_ConcurrentSuccess(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)

	const workers = 16
	outcomes := make(chan Outcome, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		channel := domain.PaymentChannelReturn
		if i%2 == 1 {
			channel = domain.PaymentChannelIPN
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), channel)
			assert.NoError(t, err)
			outcomes <- rr.Outcome
		}()
	}
	close(start)
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}

	assert.Equal(t, 1, counts[OutcomePaid])
	assert.Equal(t, workers-1, counts[OutcomeAlreadyProcessed])
	assert.Equal(t, 1, env.orders.Writes)

	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Len(t, stored.PaymentMeta, 1)

	clears, _ := env.carts.Calls()
	assert.Equal(t, 1, clears, "cart should be cleared exactly once")
}

func TestReconciler_DuplicateSequential(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)

	first, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, first.Outcome)

	reloaded := env.orders.Order(order.ID)
	second, err := env.recon.Reconcile(context.Background(), reloaded, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, 1, env.orders.Writes)
}

func TestReconciler_ValidFailure(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)

	result := &ports.VerificationResult{
		Params:         callback(order.PaymentRef, "15000000", "24"),
		TransactionRef: order.PaymentRef,
		ProcessorCode:  "24",
		IsValid:        true,
	}

	rr, err := env.recon.Reconcile(context.Background(), order, result, domain.PaymentChannelReturn)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, rr.Outcome)
	stored := env.orders.Order(order.ID)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	require.Len(t, stored.PaymentMeta, 1, "failed payloads are kept for audit")
	assert.Equal(t, domain.PaymentChannelReturn, stored.PaymentMeta[0].Channel)
	assert.Equal(t, 1, env.carts.ItemCount(order.UserID), "cart must not be cleared on failure")
}

// TestReconciler_FailedBlocksLaterSuccess tests the PENDING-only guard
func TestReconciler_FailedBlocksLaterSuccess(t *testing.T) {
	order := fixtures.FailedOrder()
	env := newTestEnv(t, order)

	rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyProcessed, rr.Outcome)
	assert.Equal(t, domain.PaymentStatusFailed, env.orders.Order(order.ID).PaymentStatus)
}

func TestReconciler_InvalidResultNoWrite(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)

	result := successResult(order)
	result.IsValid = false
	result.IsSuccess = false

	rr, err := env.recon.Reconcile(context.Background(), order, result, domain.PaymentChannelReturn)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejected, rr.Outcome)
	assert.Equal(t, 0, env.orders.Writes)
	assert.Equal(t, domain.PaymentStatusPending, env.orders.Order(order.ID).PaymentStatus)
}

func TestReconciler_AlreadyPaid(t *testing.T) {
	order := fixtures.PaidOrder()
	env := newTestEnv(t, order)

	rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelReturn)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyProcessed, rr.Outcome)
	assert.Equal(t, 0, env.orders.Writes)
}

// TestReconciler_CartFailureSwallowed tests that a failing cart store never fails the confirmation
func TestReconciler_CartFailureSwallowed(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)
	addCartItem(env, order.UserID)
	env.carts.ClearErr = errors.New("cart store unavailable")

	rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomePaid, rr.Outcome)
	assert.Equal(t, domain.PaymentStatusPaid, env.orders.Order(order.ID).PaymentStatus)
	assert.Equal(t, 1, env.carts.ItemCount(order.UserID))
}

func TestReconciler_TransactionIDSetOnce(t *testing.T) {
	order := fixtures.NewOrder().WithTransactionID("13999999").Build()
	env := newTestEnv(t, order)

	rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)

	assert.Equal(t, "13999999", rr.Order.TransactionID)
	assert.Equal(t, "13999999", env.orders.Order(order.ID).TransactionID)
}

func TestReconciler_TransactionIDRecorded(t *testing.T) {
	order := fixtures.NewOrder().Build()
	env := newTestEnv(t, order)

	rr, err := env.recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)
	require.NoError(t, err)

	stored := env.orders.Order(order.ID)
	assert.Equal(t, "14123456", rr.Order.TransactionID)
	assert.Equal(t, "14123456", stored.TransactionID)
	assert.Equal(t, stored.PaymentMeta, rr.Order.PaymentMeta)
}

func TestReconciler_StoreError(t *testing.T) {
	order := fixtures.NewOrder().Build()
	repo := new(mocks.MockOrderRepository)
	repo.On("CompareAndSwapPayment", mock.Anything, order.ID, domain.PaymentStatusPending, mock.Anything).
		Return(false, domain.ErrDatabaseError)

	recon := NewReconciler(repo, nil, zaptest.NewLogger(t))
	rr, err := recon.Reconcile(context.Background(), order, successResult(order), domain.PaymentChannelIPN)

	assert.Nil(t, rr)
	assert.ErrorIs(t, err, domain.ErrDatabaseError)
	repo.AssertExpectations(t)
}

// TestReconciler_RecordedResultIgnored tests that a result already kept in the payment
// history is not applied again to a later attempt
func TestReconciler_RecordedResultIgnored(t *testing.T) {
	stale := successResult(fixtures.NewOrder().Build())
	stale.IsSuccess = false
	stale.ProcessorCode = "24"
	stale.Signature = stale.Params["vnp_SecureHash"]

	order := fixtures.NewOrder().Build()
	order.PaymentMeta = []domain.PaymentMetaEntry{{
		Channel:       domain.PaymentChannelIPN,
		TransactionNo: stale.TransactionNo,
		Signature:     stale.Signature,
		Params:        stale.Params,
	}}
	env := newTestEnv(t, order)

	rr, err := env.recon.Reconcile(context.Background(), order, stale, domain.PaymentChannelIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyProcessed, rr.Outcome)
	assert.Equal(t, 0, env.orders.Writes)
	assert.Equal(t, domain.PaymentStatusPending, env.orders.Order(order.ID).PaymentStatus)
}

// TestOrderStore_RefusesForbiddenTransition tests the lattice check in the in-memory store
func TestOrderStore_RefusesForbiddenTransition(t *testing.T) {
	order := fixtures.PaidOrder()
	repo := mocks.NewInMemoryOrderRepository(order)

	swapped, err := repo.CompareAndSwapPayment(context.Background(), order.ID, domain.PaymentStatusPaid, domain.PaymentUpdate{
		PaymentStatus: domain.PaymentStatusPending,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.False(t, swapped)
	assert.Equal(t, 0, repo.Writes)
	assert.Equal(t, domain.PaymentStatusPaid, repo.Order(order.ID).PaymentStatus)
}
