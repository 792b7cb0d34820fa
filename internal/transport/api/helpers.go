package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

// getUserIDFromContext вызывать только в хендлерах за middlewares.AuthRequired.
func getUserIDFromContext(c *gin.Context) int64 {
	return c.GetInt64(middlewares.CurrentUserIDKey)
}

// abortWithServiceError сопоставляет ошибку сервиса http статусу.
func abortWithServiceError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		_ = c.AbortWithError(http.StatusUnprocessableEntity, validationErr).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrOrderNotFound):
		_ = c.AbortWithError(http.StatusNotFound, domain.ErrOrderNotFound).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrOwnerConflict):
		_ = c.AbortWithError(http.StatusForbidden, err).SetType(gin.ErrorTypePrivate)
	case domain.IsTransient(err):
		_ = c.AbortWithError(http.StatusServiceUnavailable, err).SetType(gin.ErrorTypePrivate)
	case errors.Is(err, domain.ErrGatewayAuth), errors.Is(err, domain.ErrGatewayRejected):
		_ = c.AbortWithError(http.StatusBadGateway, err).SetType(gin.ErrorTypePrivate)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}
