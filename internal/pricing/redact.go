package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pulgax-store/internal/models"
)

// RedactPayment reduces raw payment input to what may be stored: the method tag,
// the last four card digits, or the last three digits of an MB WAY phone. All
// other fields (full numbers, CVV, expiry, holder) are dropped.
func RedactPayment(method string, raw map[string]any, amount decimal.Decimal) models.PaymentInfo {
	method = strings.ToLower(strings.TrimSpace(method))
	info := models.PaymentInfo{
		Method: method,
		Status: models.PaymentStatusPending,
		Amount: amount,
	}

	switch method {
	case models.PaymentMethodCard:
		if digits := digitsOf(raw["card_number"]); len(digits) >= 4 {
			info.Details.CardLastDigits = digits[len(digits)-4:]
		}
		info.Details.CardType = "Visa/Mastercard"
	case models.PaymentMethodMBWay:
		phone := digitsOf(raw["mbway_phone"])
		if phone == "" {
			phone = digitsOf(raw["phone"])
		}
		if len(phone) > 3 {
			phone = phone[len(phone)-3:]
		}
		info.Details.PhoneLastDigits = phone
	}
	return info
}

func digitsOf(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	// ASCII only, so the byte slicing above never splits a rune.
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
