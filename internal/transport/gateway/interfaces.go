package gateway

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-topup/internal/domain"
)

type Servicer interface {
	OrdersForReconciliation(ctx context.Context, limit uint) ([]domain.Order, error)
	Reconcile(ctx context.Context, code string) (domain.CreditOutcome, error)
}
