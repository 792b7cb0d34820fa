package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type UsersHandler struct {
	blSvs BalanceServicer
}

func NewUsersHandler(blSvs BalanceServicer) *UsersHandler {
	return &UsersHandler{blSvs: blSvs}
}

type EnsureUserParams struct {
	DisplayName string `json:"display_name" binding:"max_bytes=255"`
}

// Ensure PUT RouteGroup + UserRoute. Заводит пользователя при первом обращении и обновляет отображаемое имя.
func (u *UsersHandler) Ensure(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params EnsureUserParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if _, err := u.blSvs.EnsureUser(reqCtx, currentUserID, params.DisplayName); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

// abortWithBindError ошибки валидатора - 422, все остальное (битый json и т.п.) - 400.
func abortWithBindError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, err).SetType(gin.ErrorTypePublic)
		return
	}
	_ = c.AbortWithError(http.StatusBadRequest, err).SetType(gin.ErrorTypePrivate)
}
