package api

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/service"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type BalanceServicer interface {
	EnsureUser(ctx context.Context, userID int64, displayName string) (*domain.User, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	DeductIfEnough(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error)
	Spend(ctx context.Context, userID int64, action service.Action) (bool, error)
}

type OrderServicer interface {
	CreateOrder(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Order, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	CheckAndCredit(ctx context.Context, code string, requestingUserID int64) (domain.CreditOutcome, error)
	Reconcile(ctx context.Context, code string) (domain.CreditOutcome, error)
}

// SignatureVerifier проверяет подпись формы, пришедшей от платежного шлюза.
type SignatureVerifier interface {
	Verify(form map[string]string) bool
}

// Cooldown ограничивает частоту операции по ключу. Acquire возвращает false, если ключ еще занят.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
