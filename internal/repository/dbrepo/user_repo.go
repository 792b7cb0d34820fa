package dbrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	"github.com/shopspring/decimal"
)

const userColumns = "id, display_name, balance, created_at"

type UserRepository struct {
	conn    uow.DBTX
	dialect Dialect
}

func NewUserRepository(conn uow.DBTX, d Dialect) *UserRepository {
	return &UserRepository{conn: conn, dialect: d}
}

// EnsureUser создает юзера с нулевым балансом, если его нет, иначе обновляет отображаемое имя.
// Баланс существующего юзера не трогает.
func (u *UserRepository) EnsureUser(ctx context.Context, args repoargs.EnsureUser) (*domain.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, display_name, balance, created_at) VALUES ($1, $2, '0', $3)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name
		RETURNING `+userColumns,
		args.ID, args.DisplayName, toUnix(time.Now()),
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "ensuring user `%d`", args.ID)
	}
	return user, nil
}

// FindByID ищет юзера по id. Возвращает ошибку domain.ErrRecordNotFound если запись не найдена.
func (u *UserRepository) FindByID(ctx context.Context, userID int64) (*domain.User, error) {
	row := u.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user `%d`", userID)
	}
	return user, nil
}

// LockBalance гарантирует наличие строки юзера и читает баланс с блокировкой строки до конца транзакции.
// Вызывать только внутри транзакции.
func (u *UserRepository) LockBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if _, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, display_name, balance, created_at) VALUES ($1, '', '0', $2)
		ON CONFLICT (id) DO NOTHING`,
		userID, toUnix(time.Now()),
	); err != nil {
		return decimal.Zero, convertErr(err, "inserting user `%d` for balance lock", userID)
	}

	var balance decimal.Decimal
	err := u.conn.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1`+u.dialect.ForUpdate(), userID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, convertErr(err, "locking balance of user `%d`", userID)
	}
	return balance, nil
}

// UpdateBalance записывает новый баланс юзера. Возвращает domain.ErrRecordNotFound, если юзера нет.
func (u *UserRepository) UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	res, err := u.conn.ExecContext(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2`, balance.String(), userID,
	)
	if err != nil {
		return convertErr(err, "updating balance of user `%d`", userID)
	}
	affected, affErr := res.RowsAffected()
	if affErr != nil {
		return convertErr(affErr, "updating balance of user `%d`", userID)
	}
	if affected == 0 {
		return convertErr(sql.ErrNoRows, "updating balance of user `%d`", userID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user      domain.User
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.DisplayName, &user.Balance, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck
	}
	user.CreatedAt = fromUnix(createdAt)
	return &user, nil
}
