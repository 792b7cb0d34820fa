package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errCheckCooldown = errors.New("order was checked recently, try again later")

type OrdersHandler struct {
	orderSvs      OrderServicer
	cooldown      Cooldown
	checkCooldown time.Duration
}

// NewOrdersHandler cooldown может быть nil, тогда проверки оплаты не ограничиваются по частоте.
func NewOrdersHandler(orderSvs OrderServicer, cooldown Cooldown, checkCooldown time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orderSvs:      orderSvs,
		cooldown:      cooldown,
		checkCooldown: checkCooldown,
	}
}

type CreateOrderParams struct {
	Amount decimal.Decimal `json:"amount" binding:"dec_gt0"`
}

type OrderResponse struct {
	CreatedAt      time.Time              `json:"created_at"`
	PaidAt         *time.Time             `json:"paid_at,omitempty"`
	Code           string                 `json:"code"`
	Amount         decimal.Decimal        `json:"amount"`
	Status         domain.OrderStatusType `json:"status"`
	GatewayOrderID string                 `json:"gateway_order_id"`
	PayURL         string                 `json:"pay_url"`
	Credited       bool                   `json:"credited"`
}

type CheckResponse struct {
	Outcome domain.CreditOutcome `json:"outcome"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		CreatedAt:      order.CreatedAt,
		PaidAt:         order.PaidAt,
		Code:           order.Code,
		Amount:         order.Amount,
		Status:         order.Status,
		GatewayOrderID: order.GatewayOrderID,
		PayURL:         order.PayURL,
		Credited:       order.Credited,
	}
}

// Create POST RouteGroup + OrdersRoute.
func (o *OrdersHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params CreateOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, GatewayServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.CreateOrder(reqCtx, currentUserID, params.Amount)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// Index GET RouteGroup + OrdersRoute.
func (o *OrdersHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()
	orders, err := o.orderSvs.GetByUserID(reqCtx, currentUserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if len(orders) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = newOrderResponse(&orders[i])
	}

	c.JSON(http.StatusOK, response)
}

// Check POST RouteGroup + OrderCheckRoute.
func (o *OrdersHandler) Check(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)
	code := c.Param("code")

	reqCtx, cancel := context.WithTimeout(c, GatewayServiceTimeout)
	defer cancel()

	if o.cooldown != nil && o.checkCooldown > 0 {
		// недоступность хранилища кулдауна не блокирует проверку.
		acquired, err := o.cooldown.Acquire(reqCtx, fmt.Sprintf("check:%d:%s", currentUserID, code), o.checkCooldown)
		if err == nil && !acquired {
			_ = c.AbortWithError(http.StatusTooManyRequests, errCheckCooldown).SetType(gin.ErrorTypePublic)
			return
		}
	}

	outcome, err := o.orderSvs.CheckAndCredit(reqCtx, code, currentUserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Outcome: outcome})
}
