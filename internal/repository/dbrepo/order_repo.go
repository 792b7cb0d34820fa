package dbrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/pkg/uow"
)

const orderColumns = "id, user_id, amount, gateway_order_id, pay_url, status, credited, created_at, paid_at"

type OrderRepository struct {
	conn    uow.DBTX
	dialect Dialect
}

func NewOrderRepository(conn uow.DBTX, d Dialect) *OrderRepository {
	return &OrderRepository{conn: conn, dialect: d}
}

// CreateOrder сохраняет новый заказ в статусе PENDING. В случае конфликта кода заказа
// возвращает domain.ErrDuplicateKey.
func (o *OrderRepository) CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	row := o.conn.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, amount, gateway_order_id, pay_url, status, credited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		RETURNING `+orderColumns,
		args.Code, args.UserID, args.Amount.String(), args.GatewayOrderID, args.PayURL,
		string(domain.OrderStatusPending), toUnix(args.CreatedAt),
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order with code `%s`", args.Code)
	}
	return order, nil
}

func (o *OrderRepository) FindByCode(ctx context.Context, code string) (*domain.Order, error) {
	row := o.conn.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, code)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by code `%s`", code)
	}
	return order, nil
}

// FindByCodeForUpdate то же, что FindByCode, но блокирует строку до конца транзакции.
func (o *OrderRepository) FindByCodeForUpdate(ctx context.Context, code string) (*domain.Order, error) {
	row := o.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`+o.dialect.ForUpdate(), code,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "locking order by code `%s`", code)
	}
	return order, nil
}

// MarkPaidCredited переводит незачисленный заказ в PAID и отмечает зачисление. Если заказ уже зачислен
// или не существует, возвращает domain.ErrRecordNotFound.
func (o *OrderRepository) MarkPaidCredited(ctx context.Context, code string, paidAt time.Time) error {
	res, err := o.conn.ExecContext(ctx,
		`UPDATE orders SET status = $1, credited = TRUE, paid_at = $2 WHERE id = $3 AND credited = FALSE`,
		string(domain.OrderStatusPaid), toUnix(paidAt), code,
	)
	if err != nil {
		return convertErr(err, "marking order `%s` as credited", code)
	}
	affected, affErr := res.RowsAffected()
	if affErr != nil {
		return convertErr(affErr, "marking order `%s` as credited", code)
	}
	if affected == 0 {
		return convertErr(sql.ErrNoRows, "marking order `%s` as credited", code)
	}
	return nil
}

// GetByUserID Возвращает список заказов по id юзера, отсортированный по дате создания по убыванию.
func (o *OrderRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := o.conn.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, convertErr(err, "getting orders by userID `%d`", userID)
	}
	orders, scanErr := scanOrders(rows)
	if scanErr != nil {
		return nil, convertErr(scanErr, "scanning orders of userID `%d`", userID)
	}
	return orders, nil
}

// GetForReconciliation возвращает не зачисленные заказы, созданные не раньше since, от старых к новым.
func (o *OrderRepository) GetForReconciliation(
	ctx context.Context,
	since time.Time,
	limit uint,
) ([]domain.Order, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt64(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int64")
	}

	rows, err := o.conn.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE credited = FALSE AND created_at >= $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`,
		toUnix(since), safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting orders for reconciliation")
	}
	orders, scanErr := scanOrders(rows)
	if scanErr != nil {
		return nil, convertErr(scanErr, "scanning orders for reconciliation")
	}
	return orders, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err() //nolint:wrapcheck
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order     domain.Order
		status    string
		createdAt int64
		paidAt    sql.NullInt64
	)
	if err := row.Scan(
		&order.Code,
		&order.UserID,
		&order.Amount,
		&order.GatewayOrderID,
		&order.PayURL,
		&status,
		&order.Credited,
		&createdAt,
		&paidAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	order.Status = domain.OrderStatusType(status)
	order.CreatedAt = fromUnix(createdAt)
	if paidAt.Valid {
		t := fromUnix(paidAt.Int64)
		order.PaidAt = &t
	}
	return &order, nil
}
