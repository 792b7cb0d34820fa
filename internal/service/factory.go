package service

import (
	"fmt"

	"github.com/fsdevblog/groph-topup/pkg/uow"
)

type AppServices struct {
	BalanceService *BalanceService
	OrderService   *OrderService
}

func Factory(unitOfWork uow.UOW, gw Gateway) (*AppServices, error) {
	balanceService, balanceServiceErr := NewBalanceService(unitOfWork)
	if balanceServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", balanceServiceErr.Error())
	}

	orderService, orderServiceErr := NewOrderService(unitOfWork, gw)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	return &AppServices{
		BalanceService: balanceService,
		OrderService:   orderService,
	}, nil
}
