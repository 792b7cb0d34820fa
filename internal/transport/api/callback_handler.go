package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errBadSignature    = errors.New("bad signature")
	errMissingUniqueID = errors.New("unique_id is required")
)

const callbackOrderField = "unique_id"

// CallbackHandler уведомления шлюза об оплате. Тело уведомления используется только как повод для сверки:
// статус заказа всегда перезапрашивается у шлюза.
type CallbackHandler struct {
	verifier SignatureVerifier
	orderSvs OrderServicer
}

func NewCallbackHandler(verifier SignatureVerifier, orderSvs OrderServicer) *CallbackHandler {
	return &CallbackHandler{verifier: verifier, orderSvs: orderSvs}
}

// Handle POST RouteGroup + GatewayCallbackRoute.
func (h *CallbackHandler) Handle(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, err).SetType(gin.ErrorTypePrivate)
		return
	}

	form := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			form[k] = v[0]
		}
	}

	if !h.verifier.Verify(form) {
		_ = c.AbortWithError(http.StatusBadRequest, errBadSignature).SetType(gin.ErrorTypePublic)
		return
	}

	code := form[callbackOrderField]
	if code == "" {
		_ = c.AbortWithError(http.StatusBadRequest, errMissingUniqueID).SetType(gin.ErrorTypePublic)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, GatewayServiceTimeout)
	defer cancel()

	if _, err := h.orderSvs.Reconcile(reqCtx, code); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.String(http.StatusOK, "success")
}
