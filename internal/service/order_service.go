package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	"github.com/shopspring/decimal"
)

const defaultReconcileWindow = 24 * time.Hour

var (
	MinOrderAmount = decimal.NewFromInt(3)     //nolint:mnd
	MaxOrderAmount = decimal.NewFromInt(10000) //nolint:mnd
)

type OrderService struct {
	uow             uow.UOW
	orderRepo       OrderRepository
	gateway         Gateway
	reconcileWindow time.Duration
	now             func() time.Time
}

func NewOrderService(u uow.UOW, gw Gateway) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &OrderService{
		uow:             u,
		orderRepo:       orderRepo,
		gateway:         gw,
		reconcileWindow: defaultReconcileWindow,
		now:             time.Now,
	}, nil
}

// SetReconcileWindow задает возраст, после которого незачисленные заказы больше не проверяются в фоне.
func (o *OrderService) SetReconcileWindow(window time.Duration) *OrderService {
	o.reconcileWindow = window
	return o
}

// CreateOrder создает платежную ссылку в шлюзе и сохраняет заказ в статусе PENDING.
// Ошибки:
//   - *domain.ValidationError: сумма вне диапазона [MinOrderAmount, MaxOrderAmount], шлюз не вызывается;
//   - *domain.GatewayError: шлюз недоступен, не принял подпись или отклонил запрос. Заказ не сохраняется.
func (o *OrderService) CreateOrder(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Order, error) {
	if amount.LessThan(MinOrderAmount) {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("must be at least %s", MinOrderAmount))
	}
	if amount.GreaterThan(MaxOrderAmount) {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("must be at most %s", MaxOrderAmount))
	}

	now := o.now()
	code, codeErr := newOrderCode(userID, now)
	if codeErr != nil {
		return nil, fmt.Errorf("creating order: %w", codeErr)
	}

	link, linkErr := o.gateway.CreatePaymentLink(ctx, code, amount, fmt.Sprintf("TG充值_%d", userID))
	if linkErr != nil {
		return nil, fmt.Errorf("creating order: %w", linkErr)
	}
	if !link.Success {
		return nil, fmt.Errorf("creating order: %w", domain.NewGatewayError(domain.ErrGatewayRejected, link.Raw, nil))
	}

	var order *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var err error
		order, err = repo.CreateOrder(c, repoargs.CreateOrder{
			Code:           code,
			UserID:         userID,
			Amount:         amount,
			GatewayOrderID: link.GatewayOrderID,
			PayURL:         link.PayURL,
			CreatedAt:      now,
		})
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("creating order: %w", txErr)
	}
	return order, nil
}

// CheckAndCredit проверяет оплату заказа code по запросу его владельца и зачисляет сумму на баланс.
// Повторный вызов по уже зачисленному заказу возвращает domain.CreditOutcomeAlreadyCredited без обращения к шлюзу.
// Ошибки: domain.ErrOrderNotFound, domain.ErrOwnerConflict, *domain.GatewayError (domain.IsTransient для
// недоступного шлюза).
func (o *OrderService) CheckAndCredit(
	ctx context.Context,
	code string,
	requestingUserID int64,
) (domain.CreditOutcome, error) {
	order, err := o.findOrder(ctx, code)
	if err != nil {
		return "", err
	}
	if order.UserID != requestingUserID {
		return "", fmt.Errorf("checking order `%s`: %w", code, domain.ErrOwnerConflict)
	}
	return o.verifyAndCredit(ctx, order)
}

// Reconcile то же, что CheckAndCredit, но без проверки владельца. Для доверенных вызовов: фоновой сверки
// и уведомлений шлюза.
func (o *OrderService) Reconcile(ctx context.Context, code string) (domain.CreditOutcome, error) {
	order, err := o.findOrder(ctx, code)
	if err != nil {
		return "", err
	}
	return o.verifyAndCredit(ctx, order)
}

// OrdersForReconciliation возвращает незачисленные заказы в пределах окна сверки, от старых к новым.
func (o *OrderService) OrdersForReconciliation(ctx context.Context, limit uint) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetForReconciliation(ctx, o.now().Add(-o.reconcileWindow), limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// GetByUserID Возвращает заказы от userID отсортированные по дате создания по убыванию.
func (o *OrderService) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

func (o *OrderService) findOrder(ctx context.Context, code string) (*domain.Order, error) {
	order, err := o.orderRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("checking order `%s`: %w", code, domain.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("checking order `%s`: %w", code, err)
	}
	return order, nil
}

func (o *OrderService) verifyAndCredit(ctx context.Context, order *domain.Order) (domain.CreditOutcome, error) {
	if order.Credited {
		return domain.CreditOutcomeAlreadyCredited, nil
	}

	deposit, depositErr := o.gateway.CheckDeposit(ctx, order.Code)
	if depositErr != nil {
		return "", fmt.Errorf("checking order `%s`: %w", order.Code, depositErr)
	}
	if !deposit.Paid {
		return domain.CreditOutcomeNotPaid, nil
	}
	return o.credit(ctx, order.Code)
}

// credit атомарно переводит заказ в PAID/credited и увеличивает баланс владельца на сумму заказа.
// Флаг credited перечитывается под блокировкой: из двух конкурентных вызовов зачисляет только первый,
// второй получает domain.CreditOutcomeAlreadyCredited.
func (o *OrderService) credit(ctx context.Context, code string) (domain.CreditOutcome, error) {
	outcome := domain.CreditOutcomeCredited

	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if orderRepoErr != nil {
			return orderRepoErr //nolint:wrapcheck
		}
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}

		order, findErr := orderRepo.FindByCodeForUpdate(c, code)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		if order.Credited {
			outcome = domain.CreditOutcomeAlreadyCredited
			return nil
		}

		if err := orderRepo.MarkPaidCredited(c, code, o.now()); err != nil {
			return err //nolint:wrapcheck
		}
		balance, lockErr := userRepo.LockBalance(c, order.UserID)
		if lockErr != nil {
			return lockErr //nolint:wrapcheck
		}
		return userRepo.UpdateBalance(c, order.UserID, balance.Add(order.Amount)) //nolint:wrapcheck
	})
	if txErr != nil {
		return "", fmt.Errorf("crediting order `%s`: %w", code, txErr)
	}
	return outcome, nil
}
