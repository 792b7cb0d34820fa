package client

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() map[string]any {
	return map[string]any{
		"unique_id":    "cz_42_1700000000_abc123",
		"name":         "TG top+up",
		"amount":       "5",
		"coin":         "USDT",
		"return_url":   "https://t.me/topup_bot",
		"callback_url": "https://pay.example.com/api/gateway/callback",
		"status":       "0",
		"memo":         "",
	}
}

func TestSigner_Sign(t *testing.T) {
	signer := NewSigner(" 10001 ", "s3cr3t\n")

	tests := []struct {
		name      string
		strategy  Strategy
		canonical string
		sign      string
		hasStatus bool
	}{
		{
			name:     "drop falsy, plus as space",
			strategy: Strategy{KeepZero: false, PlusAsSpace: true},
			canonical: "amount=5&callback_url=https://pay.example.com/api/gateway/callback&coin=USDT&id=10001" +
				"&name=TG top+up&return_url=https://t.me/topup_bot&unique_id=cz_42_1700000000_abc123",
			sign: "D7FB91A0F51B6976DFA1947B201797C7",
		},
		{
			name:     "keep zero, plus as space",
			strategy: Strategy{KeepZero: true, PlusAsSpace: true},
			canonical: "amount=5&callback_url=https://pay.example.com/api/gateway/callback&coin=USDT&id=10001" +
				"&name=TG top+up&return_url=https://t.me/topup_bot&status=0&unique_id=cz_42_1700000000_abc123",
			sign:      "12E2A749F562509066EB13454B321FCF",
			hasStatus: true,
		},
		{
			name:     "drop falsy, plus kept",
			strategy: Strategy{KeepZero: false, PlusAsSpace: false},
			canonical: "amount=5&callback_url=https://pay.example.com/api/gateway/callback&coin=USDT&id=10001" +
				"&name=TG+top+up&return_url=https://t.me/topup_bot&unique_id=cz_42_1700000000_abc123",
			sign: "B10DB0AF01618CFFCD5283E4DD03D094",
		},
		{
			name:     "keep zero, plus kept",
			strategy: Strategy{KeepZero: true, PlusAsSpace: false},
			canonical: "amount=5&callback_url=https://pay.example.com/api/gateway/callback&coin=USDT&id=10001" +
				"&name=TG+top+up&return_url=https://t.me/topup_bot&status=0&unique_id=cz_42_1700000000_abc123",
			sign:      "0D7B46407028D5232D5060F80497627C",
			hasStatus: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := signer.filter(testPayload(), tt.strategy.KeepZero)
			assert.Equal(t, tt.canonical, CanonicalString(filtered, tt.strategy.PlusAsSpace))

			body, sign := signer.Sign(testPayload(), tt.strategy)
			assert.Equal(t, tt.sign, sign)
			assert.Equal(t, tt.sign, body[SignField])
			assert.Equal(t, "10001", body["id"])
			assert.Equal(t, "TG top+up", body["name"])
			assert.NotContains(t, body, "memo")

			_, hasStatus := body["status"]
			assert.Equal(t, tt.hasStatus, hasStatus)

			// повторный вызов дает ту же подпись
			_, again := signer.Sign(testPayload(), tt.strategy)
			assert.Equal(t, sign, again)
		})
	}
}

func TestSigner_SignMinimalPayload(t *testing.T) {
	signer := NewSigner("10001", "s3cr3t")
	body, sign := signer.Sign(map[string]any{"unique_id": "cz_1_2_x"}, Strategies[0])

	assert.Equal(t, "5C8250DC91222DD9B02432719FE7E8AE", sign)
	assert.Equal(t, map[string]string{
		"id":        "10001",
		"unique_id": "cz_1_2_x",
		"sign":      "5C8250DC91222DD9B02432719FE7E8AE",
	}, body)
}

func TestSigner_SignUnicode(t *testing.T) {
	signer := NewSigner("10001", "s3cr3t")
	payload := map[string]any{"unique_id": "cz_7_1_ab", "name": "TG充值_7", "amount": "12.5"}

	for _, st := range Strategies {
		_, sign := signer.Sign(payload, st)
		assert.Equal(t, "A4FBDFA327CE369B0EBA23CE61C2B4D1", sign, st.String())
	}
}

func TestSigner_PayloadNotMutated(t *testing.T) {
	signer := NewSigner("10001", "s3cr3t")
	payload := map[string]any{"unique_id": "cz_1_2_x", "memo": ""}
	signer.Sign(payload, Strategies[0])

	assert.Equal(t, map[string]any{"unique_id": "cz_1_2_x", "memo": ""}, payload)
}

func TestSigner_Verify(t *testing.T) {
	signer := NewSigner("10001", "s3cr3t")

	for _, st := range Strategies {
		body, _ := signer.Sign(testPayload(), st)
		assert.True(t, signer.Verify(body), st.String())
	}

	body, _ := signer.Sign(testPayload(), Strategies[0])
	body["amount"] = "500"
	assert.False(t, signer.Verify(body))

	delete(body, SignField)
	assert.False(t, signer.Verify(body))

	other := NewSigner("10001", "other")
	otherBody, _ := other.Sign(testPayload(), Strategies[0])
	assert.False(t, signer.Verify(otherBody))
}

func TestStrategiesOrder(t *testing.T) {
	require.Len(t, Strategies, 4)
	assert.Equal(t, Strategy{KeepZero: false, PlusAsSpace: true}, Strategies[0])
	assert.Equal(t, Strategy{KeepZero: true, PlusAsSpace: true}, Strategies[1])
	assert.Equal(t, Strategy{KeepZero: false, PlusAsSpace: false}, Strategies[2])
	assert.Equal(t, Strategy{KeepZero: true, PlusAsSpace: false}, Strategies[3])
}

func TestIsFalsy(t *testing.T) {
	var nilDecimal *decimal.Decimal

	tests := []struct {
		name  string
		value any
		falsy bool
	}{
		{"nil", nil, true},
		{"false", false, true},
		{"true", true, false},
		{"empty string", "", true},
		{"string zero", "0", true},
		{"string zero float", "0.0", false},
		{"string", "x", false},
		{"int zero", 0, true},
		{"int", 3, false},
		{"int64 zero", int64(0), true},
		{"uint zero", uint(0), true},
		{"float zero", 0.0, true},
		{"float", 0.5, false},
		{"json number zero", json.Number("0.00"), true},
		{"json number", json.Number("10000"), false},
		{"decimal zero", decimal.Zero, true},
		{"decimal", decimal.RequireFromString("1.5"), false},
		{"nil decimal pointer", nilDecimal, true},
		{"empty slice", []string{}, true},
		{"slice", []string{"a"}, false},
		{"empty map", map[string]any{}, true},
		{"map", map[string]any{"a": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.falsy, isFalsy(tt.value))
		})
	}
}

func TestFilterKeepZero(t *testing.T) {
	signer := NewSigner("10001", "s3cr3t")
	filtered := signer.filter(map[string]any{
		"a": nil,
		"b": "",
		"c": 0,
		"d": "0",
		"e": false,
		"f": decimal.RequireFromString("2.50"),
	}, true)

	assert.Equal(t, map[string]string{
		"id": "10001",
		"c":  "0",
		"d":  "0",
		"e":  "false",
		"f":  "2.5",
	}, filtered)
}
