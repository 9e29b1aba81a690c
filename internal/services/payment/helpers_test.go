package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/services/cart"
	"github.com/kevin07696/order-payment-service/internal/testutil/mocks"
	"go.uber.org/zap/zaptest"
)

const testSecret = "SECRETKEY123"

type testEnv struct {
	orders  *mocks.InMemoryOrderRepository
	carts   *mocks.InMemoryCartStore
	cache   *cart.Cache
	service *Service
	recon   *Reconciler
}

func newTestEnv(t *testing.T, orders ...*domain.Order) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := vnpay.DefaultConfig("sandbox")
	cfg.TmnCode = "TESTTMN1"
	cfg.HashSecret = testSecret
	cfg.ReturnURL = "https://shop.example.com/api/v1/payments/vnpay/return"
	gateway := vnpay.NewAdapter(cfg, logger)

	repo := mocks.NewInMemoryOrderRepository(orders...)
	carts := mocks.NewInMemoryCartStore()
	cache := cart.NewCache(carts, logger, time.Minute, 100)
	clearer := cart.NewClearer(carts, cache, cart.DefaultClearerConfig(), logger)

	recon := NewReconciler(repo, clearer, logger)
	return &testEnv{
		orders:  repo,
		carts:   carts,
		cache:   cache,
		recon:   recon,
		service: NewService(repo, gateway, recon, logger, "VND"),
	}
}

// callback builds a signed processor payload for txnRef
func callback(txnRef, amount, responseCode string) map[string]string {
	return callbackAttempt(txnRef, amount, responseCode, "14123456")
}

// callbackAttempt is callback for a specific processor transaction number
func callbackAttempt(txnRef, amount, responseCode, transactionNo string) map[string]string {
	params := map[string]string{
		vnpay.ParamAmount:            amount,
		"vnp_BankCode":               "NCB",
		vnpay.ParamBankTranNo:        "VNP" + txnRef,
		"vnp_CardType":               "ATM",
		vnpay.ParamOrderInfo:         "Thanh toan don hang",
		"vnp_PayDate":                "20261018103512",
		vnpay.ParamResponseCode:      responseCode,
		vnpay.ParamTmnCode:           "TESTTMN1",
		vnpay.ParamTransactionNo:     transactionNo,
		vnpay.ParamTransactionStatus: responseCode,
		vnpay.ParamTxnRef:            txnRef,
	}
	params[vnpay.ParamSecureHash] = vnpay.Sign(params, []byte(testSecret))
	return params
}

func addCartItem(env *testEnv, userID uuid.UUID) {
	env.carts.AddItem(userID, domain.CartItem{ProductID: uuid.New(), Quantity: 1, UnitPrice: 150000})
}
