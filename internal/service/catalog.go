package service

import (
	"github.com/shopspring/decimal"
)

// Action платная операция, за которую списываются баллы.
type Action string

const (
	ActionDDZ  Action = "ddz"
	ActionDT   Action = "dt"
	ActionZDZ2 Action = "zdz_2"
	ActionJDZ  Action = "jdz"
)

var prices = map[Action]decimal.Decimal{
	ActionDDZ:  decimal.RequireFromString("1.5"),
	ActionDT:   decimal.RequireFromString("1.8"),
	ActionZDZ2: decimal.RequireFromString("4.5"),
	ActionJDZ:  decimal.RequireFromString("1.8"),
}

// Price возвращает стоимость операции в баллах.
func Price(action Action) (decimal.Decimal, bool) {
	p, ok := prices[action]
	return p, ok
}

// Catalog копия прайс-листа.
func Catalog() map[Action]decimal.Decimal {
	res := make(map[Action]decimal.Decimal, len(prices))
	for k, v := range prices {
		res[k] = v
	}
	return res
}
