package vnpay

import (
	"time"
)

const (
	// Version is the VNPay protocol version this adapter speaks
	Version = "2.1.0"
	// CommandPay requests a redirect payment
	CommandPay = "pay"

	// AmountMultiplier scales whole dong into VNPay minor units
	AmountMultiplier = 100

	// ResponseCodeSuccess is the success sentinel for vnp_ResponseCode and vnp_TransactionStatus
	ResponseCodeSuccess = "00"

	// DateLayout is VNPay's yyyyMMddHHmmss timestamp format
	DateLayout = "20060102150405"

	maxTxnRefLength    = 100
	maxOrderInfoLength = 255
)

// Parameter names used on the wire
const (
	ParamVersion           = "vnp_Version"
	ParamCommand           = "vnp_Command"
	ParamTmnCode           = "vnp_TmnCode"
	ParamAmount            = "vnp_Amount"
	ParamCurrCode          = "vnp_CurrCode"
	ParamTxnRef            = "vnp_TxnRef"
	ParamOrderInfo         = "vnp_OrderInfo"
	ParamOrderType         = "vnp_OrderType"
	ParamLocale            = "vnp_Locale"
	ParamIPAddr            = "vnp_IpAddr"
	ParamReturnURL         = "vnp_ReturnUrl"
	ParamCreateDate        = "vnp_CreateDate"
	ParamExpireDate        = "vnp_ExpireDate"
	ParamSecureHash        = "vnp_SecureHash"
	ParamSecureHashType    = "vnp_SecureHashType"
	ParamResponseCode      = "vnp_ResponseCode"
	ParamTransactionStatus = "vnp_TransactionStatus"
	ParamTransactionNo     = "vnp_TransactionNo"
	ParamBankTranNo        = "vnp_BankTranNo"
)

// Config contains configuration for the VNPay adapter
type Config struct {
	// Terminal code assigned by VNPay
	TmnCode string

	// Shared secret for HMAC-SHA512 signing
	HashSecret string

	// VNPay pay page
	// Sandbox: https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	// Production: https://pay.vnpay.vn/vpcpay.html
	PayURL string

	// Where VNPay redirects the payer's browser
	ReturnURL string

	Locale    string
	CurrCode  string
	OrderType string

	// How long the pay page stays valid; zero omits vnp_ExpireDate
	ExpireAfter time.Duration

	// Timezone VNPay interprets timestamps in
	Location *time.Location
}

// DefaultConfig returns default configuration for the VNPay adapter
func DefaultConfig(environment string) *Config {
	payURL := "https://pay.vnpay.vn/vpcpay.html"
	if environment != "production" {
		payURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	}

	return &Config{
		PayURL:      payURL,
		Locale:      "vn",
		CurrCode:    "VND",
		OrderType:   "other",
		ExpireAfter: 15 * time.Minute,
		Location:    ICT(),
	}
}

// ICT is Indochina Time (GMT+7), the zone VNPay timestamps are expressed in
func ICT() *time.Location {
	return time.FixedZone("ICT", 7*60*60)
}
