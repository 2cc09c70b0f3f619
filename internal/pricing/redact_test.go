package pricing

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulgax-store/internal/models"
)

func TestRedactPayment_Card(t *testing.T) {
	info := RedactPayment("Card", map[string]any{
		"card_number": "4111 1111-1111 1234",
		"cvv":         "123",
		"expiry":      "12/29",
	}, d("60.00"))

	assert.Equal(t, models.PaymentMethodCard, info.Method)
	assert.Equal(t, models.PaymentStatusPending, info.Status)
	assert.Equal(t, "1234", info.Details.CardLastDigits)
	assert.Equal(t, "Visa/Mastercard", info.Details.CardType)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4111")
	assert.NotContains(t, string(raw), "123\"")
}

func TestRedactPayment_MBWay(t *testing.T) {
	info := RedactPayment("mbway", map[string]any{"mbway_phone": "+351 912 345 678"}, d("10"))
	assert.Equal(t, "678", info.Details.PhoneLastDigits)

	numeric := RedactPayment("mbway", map[string]any{"mbway_phone": float64(912345678)}, d("10"))
	assert.Equal(t, "678", numeric.Details.PhoneLastDigits)

	short := RedactPayment("mbway", map[string]any{"mbway_phone": "12"}, d("10"))
	assert.Equal(t, "12", short.Details.PhoneLastDigits)
}

func TestRedactPayment_IgnoresNonASCIIDigits(t *testing.T) {
	tests := []struct {
		name   string
		method string
		raw    map[string]any
		card   string
		phone  string
	}{
		{"devanagari card", "card", map[string]any{"card_number": "४१११ ४१११ ४१११ ४२४२"}, "", ""},
		{"fullwidth card with ascii tail", "card", map[string]any{"card_number": "４１１１ 9876"}, "9876", ""},
		{"arabic-indic phone", "mbway", map[string]any{"mbway_phone": "٩١٢٣٤٥٦٧٨"}, "", ""},
		{"mixed phone", "mbway", map[string]any{"mbway_phone": "٩١٢ 345 678"}, "", "678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := RedactPayment(tt.method, tt.raw, d("10"))
			assert.Equal(t, tt.card, info.Details.CardLastDigits)
			assert.Equal(t, tt.phone, info.Details.PhoneLastDigits)
			assert.True(t, utf8.ValidString(info.Details.CardLastDigits))
			assert.True(t, utf8.ValidString(info.Details.PhoneLastDigits))
		})
	}
}

func TestRedactPayment_TransferKeepsOnlyMethod(t *testing.T) {
	info := RedactPayment("transfer", map[string]any{"iban": "PT50000201231234567890154"}, d("10"))
	assert.Equal(t, models.PaymentDetails{}, info.Details)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "PT50")
}
