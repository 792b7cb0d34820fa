package dbrepo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteParams параметры подключения к SQLite: пишущие транзакции открываются как BEGIN IMMEDIATE,
// конкурентные писатели ждут блокировку вместо немедленной ошибки SQLITE_BUSY.
var sqliteParams = map[string]string{
	"_txlock":       "immediate",
	"_busy_timeout": "5000",
	"_journal_mode": "WAL",
	"_foreign_keys": "on",
}

type ConnectConfig struct {
	MaxAttempts   uint
	RetryInterval time.Duration
}

var defaultConnectConfig = ConnectConfig{
	MaxAttempts:   30,
	RetryInterval: 3 * time.Second,
}

// Connect открывает базу выбранным драйвером (sqlite3 или pgx), повторяя попытки пока база недоступна,
// и применяет встроенные миграции.
func Connect(ctx context.Context, driver, dsn string, l *logrus.Logger) (*sql.DB, error) {
	return ConnectWithConfig(ctx, driver, dsn, l, defaultConnectConfig)
}

func ConnectWithConfig(
	ctx context.Context,
	driver, dsn string,
	l *logrus.Logger,
	cfg ConnectConfig,
) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		prepared, err := prepareSQLiteDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = prepared
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver `%s`", driver)
	}

	var attempts uint
	var db *sql.DB
	for {
		conn, connErr := newConnection(ctx, driver, dsn)
		if connErr == nil {
			db = conn
			break
		}
		attempts++
		if attempts >= cfg.MaxAttempts {
			return nil, fmt.Errorf("init %s connection after %d attempts: %w", driver, attempts, connErr)
		}
		l.WithError(connErr).
			WithField("CurrentAttempt", fmt.Sprintf("#%d / %d", attempts, cfg.MaxAttempts)).
			Warnf("init %s connection error, retrying in %.f seconds", driver, cfg.RetryInterval.Seconds())

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("init %s connection: %w", driver, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	if err := runMigrations(db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newConnection(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %s", driver, err.Error())
	}

	// Проверяем, что соединение работает (Ping)
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %s", driver, pingErr.Error())
	}
	return db, nil
}

// prepareSQLiteDSN создает каталог под файл базы и дописывает обязательные параметры, если их нет в DSN.
func prepareSQLiteDSN(dsn string) (string, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" {
		return "", errors.New("empty sqlite database path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse sqlite dsn params: %w", err)
	}
	for k, v := range sqliteParams {
		if !query.Has(k) {
			query.Set(k, v)
		}
	}
	return "file:" + path + "?" + query.Encode(), nil
}

func runMigrations(db *sql.DB, driver string) error {
	src, srcErr := iofs.New(migrationsFS, "migrations")
	if srcErr != nil {
		return fmt.Errorf("failed to open migrations source: %w", srcErr)
	}
	defer src.Close()

	var (
		dbDriver database.Driver
		err      error
	)
	switch driver {
	case DriverPostgres:
		dbDriver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	// Закрывать m нельзя: драйвер закроет и переданный *sql.DB.
	m, mErr := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if mErr != nil {
		return fmt.Errorf("failed to create migrate instance: %w", mErr)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
