package dbrepo

import (
	"fmt"
	"math"
	"time"

	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/pkg/uow"
)

// safeConvertUintToInt64 безопасно конвертирует uint в int64. В случае выхода значения за рамки диапазона
// выбрасывает ошибку.
func safeConvertUintToInt64(val uint) (int64, error) {
	if uint64(val) > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("value is out of range: %d", val)
	}
	return int64(val), nil
}

// Время хранится в unix-секундах, одинаково для обоих движков.
func toUnix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

// RegisterRepositories регистрирует фабрики репозиториев в UnitOfWork.
func RegisterRepositories(u uow.UOW, d Dialect) error {
	if err := u.Register(uow.RepositoryName(repoargs.UserRepoName), func(conn uow.DBTX) uow.Repository {
		return NewUserRepository(conn, d)
	}); err != nil {
		return fmt.Errorf("register user repository: %w", err)
	}
	if err := u.Register(uow.RepositoryName(repoargs.OrderRepoName), func(conn uow.DBTX) uow.Repository {
		return NewOrderRepository(conn, d)
	}); err != nil {
		return fmt.Errorf("register order repository: %w", err)
	}
	return nil
}
