package gateway

import "errors"

var (
	ErrNoOrders = errors.New("no orders")
)
