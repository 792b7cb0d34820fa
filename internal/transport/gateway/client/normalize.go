package client

import (
	"encoding/json"
	"slices"
	"strings"
)

type ruleScope int

const (
	scopeData ruleScope = iota
	scopeTop
)

// extractRule одно из альтернативных мест, где шлюз кладет значение поля.
type extractRule struct {
	scope ruleScope
	key   string
}

// Правила применяются по порядку, побеждает первое непустое значение.
var (
	orderIDRules = []extractRule{
		{scopeData, "order_id"},
		{scopeData, "orderId"},
		{scopeTop, "order_id"},
		{scopeTop, "orderId"},
	}
	payURLRules = []extractRule{
		{scopeData, "pay_url"},
		{scopeData, "payUrl"},
		{scopeData, "url"},
		{scopeData, "link"},
		{scopeTop, "pay_url"},
		{scopeTop, "payUrl"},
	}
	// payStatusKeys важно наличие ключа, а не его значение: status побеждает pay_status, даже если пуст.
	payStatusKeys = []string{"status", "pay_status"}

	successCodes        = []float64{10000, 0, 200}
	linkSuccessStatuses = []string{"success", "ok", "1", "true"}
	depositOKStatuses   = []string{"success", "ok"}
	paidValues          = []string{"1", "true", "paid", "success"}
)

// PayLinkResult нормализованный ответ на создание ссылки оплаты.
type PayLinkResult struct {
	Success        bool
	GatewayOrderID string
	PayURL         string
	Raw            map[string]any
}

// DepositResult нормализованный ответ на проверку оплаты.
type DepositResult struct {
	Paid bool
	Raw  map[string]any
}

// NormalizePayLink разбирает ответ payLink. Успех требует непустой ссылки и успешного кода или статуса.
func NormalizePayLink(resp map[string]any) PayLinkResult {
	data := nestedData(resp)
	res := PayLinkResult{
		GatewayOrderID: extract(resp, data, orderIDRules),
		PayURL:         extract(resp, data, payURLRules),
		Raw:            resp,
	}
	okStatus := slices.Contains(linkSuccessStatuses, responseStatus(resp))
	res.Success = res.PayURL != "" && (hasSuccessCode(resp) || okStatus)
	return res
}

// NormalizeDeposit разбирает ответ checkDeposit. Оплаченным считается ответ с успешным кодом или статусом
// и платежным статусом из словаря paidValues.
func NormalizeDeposit(resp map[string]any) DepositResult {
	data := nestedData(resp)

	var payStatus any = 0
	for _, key := range payStatusKeys {
		if v, ok := data[key]; ok {
			payStatus = v
			break
		}
	}
	paid := slices.Contains(paidValues, strings.ToLower(stringify(payStatus)))
	ok := hasSuccessCode(resp) || slices.Contains(depositOKStatuses, responseStatus(resp))

	return DepositResult{Paid: ok && paid, Raw: resp}
}

// IsAuthFailed сообщает, что шлюз отверг подпись.
func IsAuthFailed(resp map[string]any) bool {
	msg := stringify(resp["msg"]) + stringify(resp["message"])
	lowerMsg := strings.ToLower(msg)

	if strings.Contains(msg, "身份认证失败") ||
		strings.Contains(lowerMsg, "auth failed") ||
		strings.Contains(lowerMsg, "authentication failed") {
		return true
	}
	status := responseStatus(resp)
	return (status == "warning" || status == "error") && strings.Contains(msg, "认证")
}

func nestedData(resp map[string]any) map[string]any {
	if data, ok := resp["data"].(map[string]any); ok {
		return data
	}
	return map[string]any{}
}

func extract(resp, data map[string]any, rules []extractRule) string {
	for _, rule := range rules {
		src := resp
		if rule.scope == scopeData {
			src = data
		}
		if v, ok := src[rule.key]; ok && !isFalsy(v) {
			return stringify(v)
		}
	}
	return ""
}

func responseStatus(resp map[string]any) string {
	return strings.ToLower(stringify(resp["status"]))
}

// hasSuccessCode сравнивает поле code численно. Строковые коды не считаются успешными.
func hasSuccessCode(resp map[string]any) bool {
	var code float64
	switch v := resp["code"].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false
		}
		code = f
	case float64:
		code = v
	case int:
		code = float64(v)
	case int64:
		code = float64(v)
	default:
		return false
	}
	return slices.Contains(successCodes, code)
}
