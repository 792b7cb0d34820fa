// Package redisrepo хранилище кулдаунов в Redis.
package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "topup:cooldown:"

// Connect создает клиента и проверяет соединение.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping `%s`: %w", addr, err)
	}
	return rdb, nil
}

type Cooldown struct {
	rdb redis.UniversalClient
	l   *logrus.Entry
}

func NewCooldown(rdb redis.UniversalClient, l *logrus.Logger) *Cooldown {
	return &Cooldown{
		rdb: rdb,
		l:   l.WithField("module", "redis cooldown"),
	}
}

// Acquire занимает ключ на ttl (SET NX PX). false - ключ уже занят другим вызовом.
func (c *Cooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyPrefix+key, 1, ttl).Result()
	if err != nil {
		c.l.WithError(err).WithField("key", key).Warn("cooldown acquire failed")
		return false, fmt.Errorf("acquire cooldown `%s`: %w", key, err)
	}
	return ok, nil
}
