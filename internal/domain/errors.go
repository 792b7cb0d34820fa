package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrNotEnoughBalance = errors.New("not enough balance")
	ErrOwnerConflict    = errors.New("owner conflict")
	ErrOrderNotFound    = errors.New("order not found")

	// ErrGatewayAuth запрос дошел до шлюза, но ни одна стратегия подписи не прошла аутентификацию.
	ErrGatewayAuth = errors.New("gateway authentication failed")
	// ErrGatewayTransport ни одна стратегия не получила ответа от шлюза.
	ErrGatewayTransport = errors.New("gateway unreachable")
	// ErrGatewayRejected шлюз ответил, но ответ не признан успешным.
	ErrGatewayRejected = errors.New("gateway rejected request")
)

// ValidationError ошибка входных данных. Возвращается до любых побочных эффектов.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayError оборачивает один из ErrGateway* и хранит последний сырой ответ шлюза, если он был.
type GatewayError struct {
	Kind     error
	Response map[string]any
	Err      error
}

func NewGatewayError(kind error, response map[string]any, err error) error {
	return &GatewayError{Kind: kind, Response: response, Err: err}
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Err.Error())
	}
	return e.Kind.Error()
}

func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// IsTransient сообщает, что шлюз был недоступен и операцию безопасно повторить позже.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGatewayTransport)
}
