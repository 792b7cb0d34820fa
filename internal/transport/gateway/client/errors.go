package client

import (
	"fmt"
)

type StatusCodeError struct {
	Code int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{Code: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Unexpected status code %d", e.Code)
}

// MalformedResponseError тело ответа не является JSON-объектом.
type MalformedResponseError struct {
	Reason string
}

func NewMalformedResponseError(reason string) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason}
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("Malformed response: %s", e.Reason)
}
