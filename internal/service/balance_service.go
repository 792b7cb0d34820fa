package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	"github.com/shopspring/decimal"
)

type BalanceService struct {
	uow      uow.UOW
	userRepo UserRepository
}

func NewBalanceService(u uow.UOW) (*BalanceService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &BalanceService{
		uow:      u,
		userRepo: userRepo,
	}, nil
}

// EnsureUser создает юзера с нулевым балансом при первом обращении и обновляет отображаемое имя при последующих.
func (b *BalanceService) EnsureUser(ctx context.Context, userID int64, displayName string) (*domain.User, error) {
	var user *domain.User
	txErr := b.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var err error
		user, err = repo.EnsureUser(c, repoargs.EnsureUser{ID: userID, DisplayName: displayName})
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("ensuring user: %w", txErr)
	}
	return user, nil
}

// GetBalance возвращает баланс юзера. Для неизвестного юзера баланс нулевой.
func (b *BalanceService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	user, err := b.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("getting balance: %w", err)
	}
	return user.Balance, nil
}

// DeductIfEnough списывает amount, если баланса хватает. Чтение и запись баланса выполняются в одной
// пишущей транзакции, поэтому конкурентные списания одного юзера сериализуются и баланс не уходит в минус.
// Возвращает false без изменений, если средств недостаточно.
func (b *BalanceService) DeductIfEnough(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, domain.NewValidationError("amount", "must be greater than zero")
	}

	txErr := b.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		balance, lockErr := repo.LockBalance(c, userID)
		if lockErr != nil {
			return lockErr //nolint:wrapcheck
		}
		if balance.LessThan(amount) {
			return domain.ErrNotEnoughBalance
		}
		return repo.UpdateBalance(c, userID, balance.Sub(amount)) //nolint:wrapcheck
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrNotEnoughBalance) {
			return false, nil
		}
		return false, fmt.Errorf("deducting balance: %w", txErr)
	}
	return true, nil
}

// Spend списывает стоимость платной операции action.
func (b *BalanceService) Spend(ctx context.Context, userID int64, action Action) (bool, error) {
	price, ok := Price(action)
	if !ok {
		return false, domain.NewValidationError("action", fmt.Sprintf("unknown action `%s`", action))
	}
	return b.DeductIfEnough(ctx, userID, price)
}
