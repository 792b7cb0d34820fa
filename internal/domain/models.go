package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID          int64
	CreatedAt   time.Time
	DisplayName string
	Balance     decimal.Decimal
}

// Order заказ на пополнение баланса через платежный шлюз. Amount фиксируется при создании и больше не меняется.
// Credited отделен от Status: Status отражает факт оплаты, а Credited - что сумма уже зачислена на баланс.
type Order struct {
	Code           string
	CreatedAt      time.Time
	PaidAt         *time.Time
	UserID         int64
	Amount         decimal.Decimal
	GatewayOrderID string
	PayURL         string
	Status         OrderStatusType
	Credited       bool
}

// IsTerminal сообщает, что заказ оплачен и зачислен, дальнейшие изменения невозможны.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid && o.Credited
}
