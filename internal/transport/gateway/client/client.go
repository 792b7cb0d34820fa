// Package client клиент платежного шлюза OkayPay: подпись запросов, перебор стратегий подписи
// и нормализация разнородных ответов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	RoutePayLink      = "payLink"
	RouteCheckDeposit = "checkDeposit"

	DefaultBaseURL = "https://api.okaypay.me/shop/"
	defaultTimeout = 15 * time.Second
	coinUSDT       = "USDT"
)

// Config неизменяемые настройки клиента, задаются при создании.
type Config struct {
	BaseURL     string
	MerchantID  string
	Token       string
	ReturnURL   string
	CallbackURL string
	// Timeout ограничение на одну попытку (одну стратегию подписи).
	Timeout time.Duration
}

// HTTPClient клиент шлюза. Состояния между вызовами не хранит.
type HTTPClient struct {
	cfg        Config
	signer     Signer
	httpClient *http.Client
	l          *logrus.Entry
}

func New(cfg Config, l *logrus.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPClient{
		cfg:        cfg,
		signer:     NewSigner(cfg.MerchantID, cfg.Token),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		l: l.WithFields(logrus.Fields{
			"component": "gateway",
			"module":    "client",
		}),
	}
}

// Signer возвращает подписчика с учетными данными клиента, используется для проверки входящих уведомлений.
func (c *HTTPClient) Signer() Signer {
	return c.signer
}

// CreatePaymentLink создает ссылку оплаты для заказа orderCode на сумму amount.
// Ошибки: *domain.GatewayError с видом domain.ErrGatewayAuth или domain.ErrGatewayTransport.
func (c *HTTPClient) CreatePaymentLink(
	ctx context.Context,
	orderCode string,
	amount decimal.Decimal,
	name string,
) (*PayLinkResult, error) {
	resp, err := c.post(ctx, RoutePayLink, orderCode, map[string]any{
		"unique_id":    orderCode,
		"name":         name,
		"amount":       amount.String(),
		"return_url":   c.cfg.ReturnURL,
		"coin":         coinUSDT,
		"callback_url": c.cfg.CallbackURL,
	})
	if err != nil {
		return nil, err
	}
	res := NormalizePayLink(resp)
	return &res, nil
}

// CheckDeposit запрашивает статус оплаты заказа orderCode.
func (c *HTTPClient) CheckDeposit(ctx context.Context, orderCode string) (*DepositResult, error) {
	resp, err := c.post(ctx, RouteCheckDeposit, orderCode, map[string]any{
		"unique_id": orderCode,
	})
	if err != nil {
		return nil, err
	}
	res := NormalizeDeposit(resp)
	return &res, nil
}

// post отправляет запрос, перебирая стратегии подписи в порядке Strategies.
//   - Ошибка транспорта или разбора ответа: запоминается, пробуется следующая стратегия.
//   - Ответ с отказом в аутентификации: запоминается, пробуется следующая стратегия.
//   - Любой другой ответ возвращается сразу.
//
// Если стратегии закончились и хотя бы один ответ был получен, возвращается domain.ErrGatewayAuth
// с последним ответом, иначе domain.ErrGatewayTransport.
func (c *HTTPClient) post(
	ctx context.Context,
	route string,
	orderCode string,
	payload map[string]any,
) (map[string]any, error) {
	endpoint := c.cfg.BaseURL + route

	var (
		lastResp map[string]any
		lastErr  error
	)
	for _, st := range Strategies {
		l := c.l.WithFields(logrus.Fields{
			"route":    route,
			"order":    orderCode,
			"strategy": st.String(),
		})

		body, _ := c.signer.Sign(payload, st)
		resp, err := c.do(ctx, endpoint, body)
		if err != nil {
			l.WithError(err).Warn("gateway request failed, trying next strategy")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		lastResp = resp

		if IsAuthFailed(resp) {
			l.Debug("gateway rejected signature, trying next strategy")
			continue
		}
		return resp, nil
	}

	if lastResp != nil {
		return nil, domain.NewGatewayError(domain.ErrGatewayAuth, lastResp, nil)
	}
	return nil, domain.NewGatewayError(domain.ErrGatewayTransport, nil, lastErr)
}

// do выполняет один POST запрос с form-телом и разбирает JSON-объект ответа.
//
//nolint:nonamedreturns
func (c *HTTPClient) do(ctx context.Context, endpoint string, body map[string]string) (result map[string]any, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := make(url.Values, len(body))
	for k, v := range body {
		form.Set(k, v)
	}

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %w", doErr)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewStatusCodeError(resp.StatusCode)
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var parsed any
	if jsonErr := dec.Decode(&parsed); jsonErr != nil {
		return nil, NewMalformedResponseError(jsonErr.Error())
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, NewMalformedResponseError("response is not a JSON object")
	}
	return obj, nil
}
