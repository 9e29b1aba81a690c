package vnpay

import (
	"testing"

	pkgerrors "github.com/kevin07696/order-payment-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetResponseCode(t *testing.T) {
	tests := []struct {
		code      string
		approved  bool
		retriable bool
		category  pkgerrors.ErrorCategory
	}{
		{"00", true, false, pkgerrors.CategoryApproved},
		{"24", false, true, pkgerrors.CategoryCancelled},
		{"51", false, true, pkgerrors.CategoryInsufficientFunds},
		{"07", false, false, pkgerrors.CategorySuspected},
		{"12", false, false, pkgerrors.CategoryDeclined},
		{"XX", false, true, pkgerrors.CategoryDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			info := GetResponseCode(tt.code)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, tt.approved, info.IsApproved)
			assert.Equal(t, tt.retriable, info.IsRetriable)
			assert.Equal(t, tt.category, info.Category)
			assert.NotEmpty(t, info.UserMessage)
		})
	}
}

func TestResponseCodeInfo_ToPaymentError(t *testing.T) {
	err := GetResponseCode("24").ToPaymentError("Giao dich bi huy")

	assert.Equal(t, "24", err.Code)
	assert.Equal(t, pkgerrors.CategoryCancelled, err.Category)
	assert.True(t, err.IsRetriable)
	assert.Contains(t, err.Error(), "processor: Giao dich bi huy")
	assert.Equal(t, "Customer cancelled the transaction", err.Details["description"])
}
