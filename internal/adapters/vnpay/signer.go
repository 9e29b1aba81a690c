package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

// Canonicalize builds the exact string VNPay signs.
// Signature fields and empty values are dropped, keys are sorted byte-wise
// and values are joined verbatim without percent-encoding.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == ParamSecureHash || k == ParamSecureHashType || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign computes the lowercase hex HMAC-SHA512 of the canonical form of params
func Sign(params map[string]string, secret []byte) string {
	return computeHMAC(Canonicalize(params), secret)
}

// Verify recomputes the signature over params and compares it to provided.
// The comparison is constant time and case-sensitive.
func Verify(params map[string]string, provided string, secret []byte) bool {
	if provided == "" {
		return false
	}
	expected := Sign(params, secret)
	return hmac.Equal([]byte(expected), []byte(provided))
}

func computeHMAC(message string, key []byte) string {
	h := hmac.New(sha512.New, key)
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
