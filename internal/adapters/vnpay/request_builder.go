package vnpay

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Adapter implements ports.PaymentGateway for VNPay
type Adapter struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.PaymentGateway = (*Adapter)(nil)

// NewAdapter creates a new VNPay adapter
func NewAdapter(config *Config, logger *zap.Logger) *Adapter {
	if config.Location == nil {
		config.Location = ICT()
	}
	return &Adapter{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// BuildPaymentRequest constructs a signed redirect to the VNPay pay page.
// Calling it twice for the same order yields the same amount and TxnRef with fresh timestamps.
func (a *Adapter) BuildPaymentRequest(order ports.OrderSnapshot) (*ports.SignedRequest, error) {
	if order.Amount <= 0 {
		return nil, domain.ErrInvalidAmount.WithDetail("amount", order.Amount)
	}

	txnRef := TxnRef(order.OrderNumber)
	if txnRef == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "order number has no alphanumeric characters").
			WithDetail("order_number", order.OrderNumber)
	}

	amount := order.Amount * AmountMultiplier
	createdAt := a.now().In(a.config.Location)

	params := map[string]string{
		ParamVersion:    Version,
		ParamCommand:    CommandPay,
		ParamTmnCode:    a.config.TmnCode,
		ParamAmount:     strconv.FormatInt(amount, 10),
		ParamCurrCode:   a.config.CurrCode,
		ParamTxnRef:     txnRef,
		ParamOrderInfo:  SanitizeOrderInfo(order.Description),
		ParamOrderType:  a.config.OrderType,
		ParamLocale:     a.config.Locale,
		ParamIPAddr:     NormalizeIP(order.ClientIP),
		ParamReturnURL:  a.config.ReturnURL,
		ParamCreateDate: createdAt.Format(DateLayout),
	}
	if a.config.ExpireAfter > 0 {
		params[ParamExpireDate] = createdAt.Add(a.config.ExpireAfter).Format(DateLayout)
	}
	if params[ParamOrderInfo] == "" {
		params[ParamOrderInfo] = "Thanh toan don hang " + txnRef
	}

	canonical := Canonicalize(params)
	signature := computeHMAC(canonical, []byte(a.config.HashSecret))

	a.logger.Info("Built VNPay payment request",
		zap.String("txn_ref", txnRef),
		zap.Int64("amount", amount),
		zap.String("create_date", params[ParamCreateDate]),
	)

	return &ports.SignedRequest{
		CreatedAt: createdAt,
		Params:    params,
		Canonical: canonical,
		Signature: signature,
		URL:       a.config.PayURL + "?" + encodeQuery(params) + "&" + ParamSecureHash + "=" + signature,
		TxnRef:    txnRef,
		Amount:    amount,
	}, nil
}

// encodeQuery percent-encodes each value exactly once, keys in canonical order
func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}

// NormalizeIP maps the address forms Go's HTTP stack reports to the IPv4 text VNPay expects
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	ip = strings.TrimPrefix(ip, "::ffff:")
	switch ip {
	case "", "::1":
		return "127.0.0.1"
	}
	return ip
}

// TxnRef derives the transaction reference from an order number
func TxnRef(orderNumber string) string {
	var b strings.Builder
	for _, r := range orderNumber {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxTxnRefLength {
			break
		}
	}
	return b.String()
}

var vietnameseD = strings.NewReplacer("đ", "d", "Đ", "D")

// SanitizeOrderInfo strips diacritics and collapses whitespace in free text.
// The result is at most 255 characters.
func SanitizeOrderInfo(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, vietnameseD.Replace(s))
	if err != nil {
		stripped = s
	}

	stripped = strings.Join(strings.Fields(stripped), " ")

	r := []rune(stripped)
	if len(r) > maxOrderInfoLength {
		stripped = strings.TrimSpace(string(r[:maxOrderInfoLength]))
	}
	return stripped
}
