package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/groph-topup/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

const CurrentUserIDKey = "currentUserID"

const bearerPrefix = "Bearer "

var ErrNoAuthorization = errors.New("authorization header is missing")

func checkAuthorization(c *gin.Context, secret []byte) (*tokens.UserClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, ErrNoAuthorization
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errors.New("authorization header is not a bearer token")
	}

	claims, err := tokens.ValidateUserJWT(strings.TrimPrefix(header, bearerPrefix), secret)
	if err != nil {
		return nil, fmt.Errorf("check authorization: %w", err)
	}
	return claims, nil
}

// AuthRequired пропускает запрос только с валидным JWT и кладет id пользователя в контекст по ключу CurrentUserIDKey.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, secret)
		if err != nil {
			_ = c.AbortWithError(http.StatusUnauthorized, err).SetType(gin.ErrorTypePrivate)
			return
		}
		c.Set(CurrentUserIDKey, claims.ID)
		c.Next()
	}
}
