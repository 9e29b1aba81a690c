package vnpay

import (
	pkgerrors "github.com/kevin07696/order-payment-service/pkg/errors"
)

// IPN acknowledgement codes VNPay understands in the RspCode field
const (
	RspCodeConfirmSuccess   = "00"
	RspCodeOrderNotFound    = "01"
	RspCodeAlreadyConfirmed = "02"
	RspCodeInvalidAmount    = "04"
	RspCodeInvalidSignature = "97"
	RspCodeUnknownError     = "99"
)

// ResponseCodeInfo contains detailed information about a vnp_ResponseCode value
type ResponseCodeInfo struct {
	Code        string
	Description string
	IsApproved  bool
	IsRetriable bool
	Category    pkgerrors.ErrorCategory
	UserMessage string
}

var responseCodes = map[string]ResponseCodeInfo{
	"00": {
		Code:        "00",
		Description: "Transaction successful",
		IsApproved:  true,
		Category:    pkgerrors.CategoryApproved,
		UserMessage: "Payment successful",
	},
	"07": {
		Code:        "07",
		Description: "Amount deducted, transaction flagged as suspicious",
		Category:    pkgerrors.CategorySuspected,
		UserMessage: "Your payment is under review. Please contact support.",
	},
	"09": {
		Code:        "09",
		Description: "Card or account not registered for internet banking",
		IsRetriable: true,
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Your card is not registered for online banking.",
	},
	"10": {
		Code:        "10",
		Description: "Card or account authentication failed more than 3 times",
		IsRetriable: true,
		Category:    pkgerrors.CategoryAuthentication,
		UserMessage: "Card verification failed too many times.",
	},
	"11": {
		Code:        "11",
		Description: "Payment window expired",
		IsRetriable: true,
		Category:    pkgerrors.CategoryExpired,
		UserMessage: "The payment session expired. Please try again.",
	},
	"12": {
		Code:        "12",
		Description: "Card or account is locked",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Your card or account is locked.",
	},
	"13": {
		Code:        "13",
		Description: "Wrong OTP",
		IsRetriable: true,
		Category:    pkgerrors.CategoryAuthentication,
		UserMessage: "The one-time password was incorrect. Please try again.",
	},
	"24": {
		Code:        "24",
		Description: "Customer cancelled the transaction",
		IsRetriable: true,
		Category:    pkgerrors.CategoryCancelled,
		UserMessage: "Payment was cancelled.",
	},
	"51": {
		Code:        "51",
		Description: "Insufficient funds",
		IsRetriable: true,
		Category:    pkgerrors.CategoryInsufficientFunds,
		UserMessage: "Insufficient funds. Please use a different payment method.",
	},
	"65": {
		Code:        "65",
		Description: "Daily transaction limit exceeded",
		IsRetriable: true,
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Your daily transaction limit was exceeded.",
	},
	"75": {
		Code:        "75",
		Description: "Issuing bank under maintenance",
		IsRetriable: true,
		Category:    pkgerrors.CategoryBankUnavailable,
		UserMessage: "Your bank is under maintenance. Please try again later.",
	},
	"79": {
		Code:        "79",
		Description: "Wrong payment password entered too many times",
		IsRetriable: true,
		Category:    pkgerrors.CategoryAuthentication,
		UserMessage: "Payment password entered incorrectly too many times.",
	},
	"99": {
		Code:        "99",
		Description: "Other error",
		IsRetriable: true,
		Category:    pkgerrors.CategorySystemError,
		UserMessage: "Payment failed. Please try again.",
	},
}

// GetResponseCode retrieves information for a vnp_ResponseCode value
func GetResponseCode(code string) ResponseCodeInfo {
	if info, exists := responseCodes[code]; exists {
		return info
	}
	return ResponseCodeInfo{
		Code:        code,
		Description: "Unknown response code",
		IsRetriable: true,
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Payment failed. Please try again or use a different payment method.",
	}
}

// ToPaymentError converts a response code to a PaymentError
func (r ResponseCodeInfo) ToPaymentError(processorMessage string) *pkgerrors.PaymentError {
	err := pkgerrors.NewPaymentError(r.Code, r.UserMessage, r.Category, r.IsRetriable)
	err.ProcessorMessage = processorMessage
	err.Details["description"] = r.Description
	return err
}
