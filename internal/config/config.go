package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress        string
	DatabaseDriver    string
	DatabaseDSN       string
	RedisAddress      string
	JWTUserSecret     string
	GatewayBaseURL    string
	MerchantID        string
	MerchantToken     string
	ReturnURL         string
	CallbackURL       string
	ReconcileInterval time.Duration
	CheckCooldown     time.Duration
	TokenTTL          time.Duration
	// IssueTokenFor если задан, приложение печатает JWT для этого пользователя и завершается.
	IssueTokenFor int64
}

// rawConfig значения в том виде, в каком они пришли из окружения или флагов, до слияния и разбора.
type rawConfig struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseDriver    string `env:"DATABASE_DRIVER"`
	DatabaseDSN       string `env:"DATABASE_URI"`
	RedisAddress      string `env:"REDIS_ADDRESS"`
	JWTUserSecret     string `env:"JWT_USER_SECRET"`
	GatewayBaseURL    string `env:"OKPAY_BASE_URL"`
	MerchantID        string `env:"OKPAY_ID"`
	MerchantToken     string `env:"OKPAY_TOKEN"`
	ReturnURL         string `env:"RETURN_URL"`
	CallbackURL       string `env:"CALLBACK_URL"`
	ReconcileInterval string `env:"RECONCILE_INTERVAL"`
	CheckCooldown     string `env:"CHECK_COOLDOWN"`
	TokenTTL          string `env:"TOKEN_TTL"`
}

// LoadConfig читает .env (если есть), переменные окружения и флаги командной строки.
// Переменные окружения имеют приоритет над флагами.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}
	return loadConfig(os.Args[1:], env.Options{})
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadConfig(args []string, envOpts env.Options) (*Config, error) {
	var envConfig rawConfig
	if envParseErr := env.ParseWithOptions(&envConfig, envOpts); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	flagsConfig, issueTokenFor, flagsErr := loadFlags(args)
	if flagsErr != nil {
		return nil, flagsErr
	}

	conf, err := mergeConfig(&envConfig, flagsConfig)
	if err != nil {
		return nil, err
	}
	conf.IssueTokenFor = issueTokenFor

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadFlags(args []string) (*rawConfig, int64, error) {
	var flagConfig rawConfig
	var issueTokenFor int64

	fset := flag.NewFlagSet("topup", flag.ContinueOnError)
	fset.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fset.StringVar(&flagConfig.DatabaseDriver, "driver", "sqlite3", "Database driver: sqlite3 or pgx")
	fset.StringVar(&flagConfig.DatabaseDSN, "d", "data/topup.db", "Database DSN or sqlite file path")
	fset.StringVar(&flagConfig.RedisAddress, "r", "", "Redis address for check cooldown, empty disables")
	fset.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT secret for user tokens")
	fset.StringVar(&flagConfig.GatewayBaseURL, "g", "https://api.okaypay.me/shop/", "Payment gateway base URL")
	fset.StringVar(&flagConfig.MerchantID, "merchant-id", "", "Payment gateway merchant id")
	fset.StringVar(&flagConfig.MerchantToken, "merchant-token", "", "Payment gateway merchant token")
	fset.StringVar(&flagConfig.ReturnURL, "return-url", "", "URL the payer returns to after payment")
	fset.StringVar(&flagConfig.CallbackURL, "callback-url", "", "URL for gateway payment notifications")
	fset.StringVar(&flagConfig.ReconcileInterval, "i", "30s", "Background reconciliation interval, 0 disables")
	fset.StringVar(&flagConfig.CheckCooldown, "c", "5s", "Minimal interval between payment checks of one order")
	fset.StringVar(&flagConfig.TokenTTL, "token-ttl", "720h", "Lifetime of issued user tokens")
	fset.Int64Var(&issueTokenFor, "issue-token", 0, "Print a user token for the given user id and exit")

	if err := fset.Parse(args); err != nil {
		return nil, 0, fmt.Errorf("parse flags: %w", err)
	}
	return &flagConfig, issueTokenFor, nil
}

func mergeConfig(envConfig, flagsConfig *rawConfig) (*Config, error) {
	reconcileInterval, err := time.ParseDuration(
		defaultIfBlank(envConfig.ReconcileInterval, flagsConfig.ReconcileInterval))
	if err != nil {
		return nil, fmt.Errorf("parse reconcile interval: %s", err.Error())
	}
	checkCooldown, err := time.ParseDuration(defaultIfBlank(envConfig.CheckCooldown, flagsConfig.CheckCooldown))
	if err != nil {
		return nil, fmt.Errorf("parse check cooldown: %s", err.Error())
	}
	tokenTTL, err := time.ParseDuration(defaultIfBlank(envConfig.TokenTTL, flagsConfig.TokenTTL))
	if err != nil {
		return nil, fmt.Errorf("parse token ttl: %s", err.Error())
	}

	return &Config{
		RunAddress:        defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDriver:    defaultIfBlank(envConfig.DatabaseDriver, flagsConfig.DatabaseDriver),
		DatabaseDSN:       defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		RedisAddress:      defaultIfBlank(envConfig.RedisAddress, flagsConfig.RedisAddress),
		JWTUserSecret:     defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret),
		GatewayBaseURL:    defaultIfBlank(envConfig.GatewayBaseURL, flagsConfig.GatewayBaseURL),
		MerchantID:        defaultIfBlank(envConfig.MerchantID, flagsConfig.MerchantID),
		MerchantToken:     defaultIfBlank(envConfig.MerchantToken, flagsConfig.MerchantToken),
		ReturnURL:         defaultIfBlank(envConfig.ReturnURL, flagsConfig.ReturnURL),
		CallbackURL:       defaultIfBlank(envConfig.CallbackURL, flagsConfig.CallbackURL),
		ReconcileInterval: reconcileInterval,
		CheckCooldown:     checkCooldown,
		TokenTTL:          tokenTTL,
	}, nil
}

func (c *Config) validate() error {
	if c.JWTUserSecret == "" {
		return errors.New("jwt user secret is not set")
	}
	if c.IssueTokenFor != 0 {
		return nil
	}
	if c.DatabaseDSN == "" {
		return errors.New("database DSN is not set")
	}
	if c.MerchantID == "" || c.MerchantToken == "" {
		return errors.New("payment gateway credentials are not set")
	}
	if c.ReconcileInterval < 0 || c.CheckCooldown < 0 {
		return errors.New("intervals must not be negative")
	}
	return nil
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
