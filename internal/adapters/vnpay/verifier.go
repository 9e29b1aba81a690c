package vnpay

import (
	"net/url"
	"strings"

	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// VerifyReturn classifies the browser redirect VNPay sends the payer back with.
// The browser is untrusted, so nothing here is believed without a matching signature.
func (a *Adapter) VerifyReturn(params map[string]string) *ports.VerificationResult {
	result := a.verify(params)

	a.logger.Info("Verified VNPay return callback",
		zap.String("txn_ref", result.TransactionRef),
		zap.String("response_code", result.ProcessorCode),
		zap.Bool("is_valid", result.IsValid),
		zap.Bool("is_success", result.IsSuccess),
	)
	return result
}

// VerifyNotification classifies a server-to-server IPN call.
// The caller still has to check the amount against its own order record.
func (a *Adapter) VerifyNotification(params map[string]string) *ports.VerificationResult {
	result := a.verify(params)

	a.logger.Info("Verified VNPay IPN",
		zap.String("txn_ref", result.TransactionRef),
		zap.String("amount", result.Amount),
		zap.String("response_code", result.ProcessorCode),
		zap.String("transaction_no", result.TransactionNo),
		zap.Bool("is_valid", result.IsValid),
		zap.Bool("is_success", result.IsSuccess),
	)
	return result
}

func (a *Adapter) verify(params map[string]string) *ports.VerificationResult {
	result := &ports.VerificationResult{
		Params:         params,
		TransactionRef: params[ParamTxnRef],
		Amount:         params[ParamAmount],
		ProcessorCode:  params[ParamResponseCode],
		TransactionNo:  params[ParamTransactionNo],
		BankTranNo:     params[ParamBankTranNo],
		Signature:      params[ParamSecureHash],
	}

	if !Verify(params, params[ParamSecureHash], []byte(a.config.HashSecret)) {
		a.logger.Warn("VNPay signature mismatch",
			zap.String("txn_ref", result.TransactionRef),
			zap.String("error_code", "SIGNATURE_INVALID"),
		)
		return result
	}

	result.IsValid = true
	result.IsSuccess = isSuccess(params)
	return result
}

// isSuccess requires the response code and, when VNPay sends one, the transaction status to both be 00
func isSuccess(params map[string]string) bool {
	if params[ParamResponseCode] != ResponseCodeSuccess {
		return false
	}
	status, ok := params[ParamTransactionStatus]
	return !ok || status == ResponseCodeSuccess
}

// ParseQuery decodes a raw query string exactly once and keeps the first value of each key
func ParseQuery(rawQuery string) (map[string]string, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	return FirstValues(values), nil
}

// FirstValues flattens url.Values into a single-valued map
func FirstValues(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

// SplitMalformedPath separates a path of the form /return&vnp_a=1&vnp_b=2 that VNPay
// sometimes produces when it appends parameters without a '?'.
// ok is false when the path carries no such parameters.
func SplitMalformedPath(escapedPath string) (path, rawQuery string, ok bool) {
	i := strings.IndexByte(escapedPath, '&')
	if i < 0 {
		return escapedPath, "", false
	}
	return escapedPath[:i], escapedPath[i+1:], true
}

// RepairCallbackURL rewrites the first '&' of a query-less URL into '?'.
// Well-formed URLs are returned unchanged.
func RepairCallbackURL(raw string) string {
	if strings.Contains(raw, "?") {
		return raw
	}
	path, query, ok := SplitMalformedPath(raw)
	if !ok {
		return raw
	}
	return path + "?" + query
}
