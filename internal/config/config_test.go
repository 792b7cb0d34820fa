package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOptions(vars map[string]string) env.Options {
	return env.Options{Environment: vars}
}

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := loadConfig(nil, envOptions(map[string]string{
		"JWT_USER_SECRET": "secret",
		"OKPAY_ID":        "10001",
		"OKPAY_TOKEN":     "s3cr3t",
	}))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", conf.RunAddress)
	assert.Equal(t, "sqlite3", conf.DatabaseDriver)
	assert.Equal(t, "data/topup.db", conf.DatabaseDSN)
	assert.Equal(t, "https://api.okaypay.me/shop/", conf.GatewayBaseURL)
	assert.Equal(t, 30*time.Second, conf.ReconcileInterval)
	assert.Equal(t, 5*time.Second, conf.CheckCooldown)
	assert.Empty(t, conf.RedisAddress)
}

func TestLoadConfigEnvOverFlags(t *testing.T) {
	conf, err := loadConfig(
		[]string{"-a", "0.0.0.0:9000", "-d", "flag.db", "-i", "1m", "-merchant-id", "1", "-merchant-token", "t"},
		envOptions(map[string]string{
			"JWT_USER_SECRET":    "secret",
			"DATABASE_URI":       "env.db",
			"RECONCILE_INTERVAL": "0",
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", conf.RunAddress)
	assert.Equal(t, "env.db", conf.DatabaseDSN)
	assert.Equal(t, time.Duration(0), conf.ReconcileInterval)
	assert.Equal(t, "1", conf.MerchantID)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := loadConfig(nil, envOptions(map[string]string{"OKPAY_ID": "1", "OKPAY_TOKEN": "t"}))
	require.Error(t, err)

	_, err = loadConfig(nil, envOptions(map[string]string{"JWT_USER_SECRET": "secret"}))
	require.Error(t, err)

	_, err = loadConfig([]string{"-c", "soon"}, envOptions(map[string]string{
		"JWT_USER_SECRET": "secret", "OKPAY_ID": "1", "OKPAY_TOKEN": "t",
	}))
	require.Error(t, err)

	// для выпуска токена реквизиты шлюза не нужны.
	conf, err := loadConfig([]string{"-issue-token", "42"}, envOptions(map[string]string{"JWT_USER_SECRET": "secret"}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), conf.IssueTokenFor)
}

func TestDefaultIfBlank(t *testing.T) {
	assert.Equal(t, "b", defaultIfBlank("", "b"))
	assert.Equal(t, "a", defaultIfBlank("a", "b"))
}
