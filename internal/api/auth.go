package api

import (
	"context"
	"net/http"
	"strings"

	"kitchenledger/internal/core"
)

type otpRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type setRestaurantRequest struct {
	RestaurantName string `json:"restaurant_name"`
}

// RequestOTP asks the backend to email a one-time code to email.
// The address is checked locally first; a rejected address never leaves the process.
func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := core.ValidateEmail(email); err != nil {
		return "", err
	}

	const op = "send OTP"
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/auth/send-otp", body: otpRequest{Email: email}, auth: authNone})
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}

	var out messageResponse
	if len(resp.body) > 0 {
		if err := resp.decode(op, &out); err != nil {
			return "", err
		}
	}
	return out.Message, nil
}

// VerifyOTP exchanges email and code for a session token.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if err := core.ValidateOTP(code); err != nil {
		return "", err
	}

	const op = "verify OTP"
	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/verify-otp",
		body:   verifyRequest{Email: strings.TrimSpace(email), OTP: code},
		auth:   authNone,
	})
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", core.ErrInvalidOTP
	}

	var out tokenResponse
	if err := resp.decode(op, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", &core.ServiceError{Op: op, Status: resp.status, Body: "response carried no token"}
	}
	return out.Token, nil
}

// GetRestaurantProfile fetches the restaurant name. A 404 means the name was
// never set and yields a profile with a nil Name and no error.
func (c *Client) GetRestaurantProfile(ctx context.Context) (core.RestaurantProfile, error) {
	const op = "get restaurant name"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/auth/get-restaurant", auth: authRequired})
	if err != nil {
		return core.RestaurantProfile{}, err
	}

	switch {
	case resp.ok():
	case resp.status == http.StatusUnauthorized:
		return core.RestaurantProfile{}, core.ErrAuthFailed
	case resp.status == http.StatusNotFound:
		return core.RestaurantProfile{}, nil
	default:
		return core.RestaurantProfile{}, &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}

	var profile core.RestaurantProfile
	if err := resp.decode(op, &profile); err != nil {
		return core.RestaurantProfile{}, err
	}
	return profile, nil
}

// SetRestaurantProfile stores the restaurant name for the account.
func (c *Client) SetRestaurantProfile(ctx context.Context, name string) (string, error) {
	name, err := core.ValidateRestaurantName(name)
	if err != nil {
		return "", err
	}

	const op = "set restaurant name"
	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/set-restaurant",
		body:   setRestaurantRequest{RestaurantName: name},
		auth:   authRequired,
	})
	if err != nil {
		return "", err
	}
	switch {
	case resp.ok():
	case resp.status == http.StatusUnauthorized:
		return "", core.ErrAuthFailed
	default:
		return "", &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}

	var out messageResponse
	if len(resp.body) > 0 {
		if err := resp.decode(op, &out); err != nil {
			return "", err
		}
	}
	return out.Message, nil
}
