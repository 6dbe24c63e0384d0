package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthError reports a missing, invalid or expired credential.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return e.Msg
}

// ServiceError is a non-success backend response that no other rule classified.
type ServiceError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %d - %s", e.Op, e.Status, e.Body)
}

// NetworkError wraps a transport failure such as a refused connection.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidOrders = errors.New("invalid order count")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidCode   = errors.New("invalid code")
	ErrEmptyName     = errors.New("empty restaurant name")

	ErrMissingToken = &AuthError{Msg: "No authentication token"}
	ErrAuthFailed   = &AuthError{Msg: "Authentication failed - please login again"}
	ErrInvalidOTP   = &AuthError{Msg: "Invalid OTP"}
)

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// IsRejectedCredential reports whether the backend refused the session
// token. Profile calls classify that as AuthError; the transaction endpoints
// surface it as a 401 ServiceError.
func IsRejectedCredential(err error) bool {
	if IsAuth(err) {
		return true
	}
	var s *ServiceError
	return errors.As(err, &s) && s.Status == http.StatusUnauthorized
}

func IsService(err error) bool {
	var s *ServiceError
	return errors.As(err, &s)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}
