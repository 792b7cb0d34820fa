package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errSpendParams = errors.New("either action or amount is required")

type BalanceHandler struct {
	blSvs BalanceServicer
}

func NewBalanceHandler(blSvs BalanceServicer) *BalanceHandler {
	return &BalanceHandler{blSvs: blSvs}
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// SpendParams списание либо по платной операции из каталога, либо на произвольную сумму.
type SpendParams struct {
	Action string          `json:"action" binding:"max=32"`
	Amount decimal.Decimal `json:"amount"`
}

// Index GET RouteGroup + BalanceRoute.
func (b *BalanceHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := b.blSvs.GetBalance(reqCtx, currentUserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Balance: balance})
}

// Spend POST RouteGroup + BalanceSpendRoute.
func (b *BalanceHandler) Spend(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params SpendParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	switch {
	case params.Action != "":
		ok, err = b.blSvs.Spend(reqCtx, currentUserID, service.Action(params.Action))
	case !params.Amount.IsZero():
		ok, err = b.blSvs.DeductIfEnough(reqCtx, currentUserID, params.Amount)
	default:
		_ = c.AbortWithError(http.StatusUnprocessableEntity, errSpendParams).SetType(gin.ErrorTypePublic)
		return
	}
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !ok {
		_ = c.AbortWithError(http.StatusPaymentRequired, domain.ErrNotEnoughBalance).SetType(gin.ErrorTypePublic)
		return
	}

	balance, err := b.blSvs.GetBalance(reqCtx, currentUserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Balance: balance})
}
