package service

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway/client"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type OrderRepository interface {
	CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByCode(ctx context.Context, code string) (*domain.Order, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*domain.Order, error)
	MarkPaidCredited(ctx context.Context, code string, paidAt time.Time) error
	GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	GetForReconciliation(ctx context.Context, since time.Time, limit uint) ([]domain.Order, error)
}

type UserRepository interface {
	EnsureUser(ctx context.Context, args repoargs.EnsureUser) (*domain.User, error)
	FindByID(ctx context.Context, userID int64) (*domain.User, error)
	LockBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
}

// Gateway платежный шлюз. Перебор стратегий подписи скрыт внутри реализации.
type Gateway interface {
	CreatePaymentLink(
		ctx context.Context,
		orderCode string,
		amount decimal.Decimal,
		name string,
	) (*client.PayLinkResult, error)
	CheckDeposit(ctx context.Context, orderCode string) (*client.DepositResult, error)
}
