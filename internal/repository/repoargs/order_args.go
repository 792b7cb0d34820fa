package repoargs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	Code           string
	UserID         int64
	Amount         decimal.Decimal
	GatewayOrderID string
	PayURL         string
	CreatedAt      time.Time
}
