// Package apperr defines the error taxonomy shared by services and handlers.
// Each error carries the HTTP status it maps to, so the api layer never has
// to inspect error text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrEmptyOrderItems     = &Error{Status: http.StatusBadRequest, Message: "order must contain at least one item"}
	ErrInvalidQuantity     = &Error{Status: http.StatusBadRequest, Message: "quantity must be greater than 0"}
	ErrOrderNotFound       = &Error{Status: http.StatusNotFound, Message: "order not found"}
	ErrOrderNotCancellable = &Error{Status: http.StatusBadRequest, Message: "order not found or cannot be cancelled"}
	ErrProductNotFound     = &Error{Status: http.StatusNotFound, Message: "product not found"}
	ErrUserNotFound        = &Error{Status: http.StatusNotFound, Message: "user not found"}
	ErrEmailAlreadyInUse   = &Error{Status: http.StatusConflict, Message: "email address is already in use"}
	ErrInvalidCredentials  = &Error{Status: http.StatusUnauthorized, Message: "invalid credentials"}
	ErrSignatureInvalid    = &Error{Status: http.StatusBadRequest, Message: "webhook signature verification failed"}
)

// MissingProduct reports the first order item whose product id is unknown.
func MissingProduct(productID int64) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf("product with ID %d not found", productID)}
}

// Upstream wraps a failed call to an external collaborator (payment gateway).
func Upstream(op string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Message: op + " failed", Err: err}
}

// HTTPStatus resolves the response status for err, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Message resolves the client-facing message for err without leaking
// internals of unexpected failures.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
