// Package auth drives the passwordless login lifecycle on top of the
// backend OTP endpoints and the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/session"
)

// ResendCooldown is the courtesy wait between two OTP sends.
const ResendCooldown = 60 * time.Second

type Phase string

const (
	Loading   Phase = "loading"
	LoggedOut Phase = "logged_out"
	LoggedIn  Phase = "logged_in"
)

// Step gates which form is shown while logged out.
type Step string

const (
	AwaitingEmail Step = "awaiting_email"
	AwaitingCode  Step = "awaiting_code"
)

var (
	ErrWrongState = errors.New("action not allowed in the current login state")
	ErrCooldown   = errors.New("please wait before requesting another code")
)

// State is a snapshot of the controller. Step and Email only carry
// meaning in the LoggedOut phase.
type State struct {
	Phase    Phase     `json:"phase"`
	Step     Step      `json:"step,omitempty"`
	Email    string    `json:"email,omitempty"`
	LastSent time.Time `json:"last_sent,omitempty"`
}

// Authenticator is the subset of the backend client the controller needs.
type Authenticator interface {
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (string, error)
}

type Listener func(State)

type Controller struct {
	mu        sync.Mutex
	client    Authenticator
	store     *session.Store
	logger    *slog.Logger
	now       func() time.Time
	cooldown  time.Duration
	state     State
	listeners []Listener
}

type Option func(*Controller)

// WithClock replaces time.Now, used by the resend cooldown.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

func NewController(client Authenticator, store *session.Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		client:   client,
		store:    store,
		logger:   logger.With(applog.FieldComponent, applog.ComponentAuth),
		now:      time.Now,
		cooldown: ResendCooldown,
		state:    State{Phase: Loading},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to be called after every state change.
func (c *Controller) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start resolves the Loading phase from the persisted session. An address
// remembered from an earlier OTP request resumes the code step.
func (c *Controller) Start(ctx context.Context) (State, error) {
	c.mu.Lock()
	_, ok, err := c.store.Get(ctx)
	if err != nil {
		c.mu.Unlock()
		return c.State(), err
	}

	next := State{Phase: LoggedIn}
	if !ok {
		next = State{Phase: LoggedOut, Step: AwaitingEmail}
		if email, found, perr := c.store.PendingEmail(ctx); perr == nil && found && email != "" {
			next = State{Phase: LoggedOut, Step: AwaitingCode, Email: email}
		}
	}
	return c.transition(ctx, next), nil
}

// RequestCode sends an OTP to email and moves to the code step. Asking again
// from the code step restarts the flow with the new address.
func (c *Controller) RequestCode(ctx context.Context, email string) (State, error) {
	c.mu.Lock()
	if c.state.Phase != LoggedOut {
		c.mu.Unlock()
		return c.State(), ErrWrongState
	}
	c.mu.Unlock()

	email = strings.TrimSpace(email)
	if _, err := c.client.RequestOTP(ctx, email); err != nil {
		c.logger.WarnContext(ctx, "OTP request failed", applog.FieldOperation, applog.OpSendOTP, applog.FieldError, err)
		return c.State(), err
	}

	// A Verify that finished meanwhile wins; the sent code is simply unused.
	c.mu.Lock()
	if c.state.Phase != LoggedOut {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "Login state moved on during OTP request", applog.FieldOperation, applog.OpSendOTP)
		return c.State(), ErrWrongState
	}
	if err := c.store.SetPendingEmail(ctx, email); err != nil {
		c.logger.WarnContext(ctx, "Could not remember pending email", applog.FieldError, err)
	}
	return c.transition(ctx, State{Phase: LoggedOut, Step: AwaitingCode, Email: email, LastSent: c.now()}), nil
}

// ResendCode sends the OTP again. Inside the cooldown it returns the
// remaining wait with ErrCooldown.
func (c *Controller) ResendCode(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	if c.state.Phase != LoggedOut || c.state.Step != AwaitingCode {
		c.mu.Unlock()
		return 0, ErrWrongState
	}
	if wait := c.remainingLocked(); wait > 0 {
		c.mu.Unlock()
		return wait, ErrCooldown
	}
	email := c.state.Email
	c.mu.Unlock()

	if _, err := c.client.RequestOTP(ctx, email); err != nil {
		c.logger.WarnContext(ctx, "OTP resend failed", applog.FieldOperation, applog.OpSendOTP, applog.FieldError, err)
		return 0, err
	}

	c.mu.Lock()
	if !c.awaitingCodeFor(email) {
		c.mu.Unlock()
		return 0, ErrWrongState
	}
	next := c.state
	next.LastSent = c.now()
	c.transition(ctx, next)
	return c.cooldown, nil
}

// ResendIn reports how long until ResendCode is allowed again.
func (c *Controller) ResendIn() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Controller) remainingLocked() time.Duration {
	if c.state.LastSent.IsZero() {
		return 0
	}
	wait := c.cooldown - c.now().Sub(c.state.LastSent)
	if wait < 0 {
		return 0
	}
	return wait.Round(time.Second)
}

// ChangeEmail goes back from the code step to the email step.
func (c *Controller) ChangeEmail(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Phase != LoggedOut || c.state.Step != AwaitingCode {
		c.mu.Unlock()
		return c.State(), ErrWrongState
	}
	if err := c.store.ClearPendingEmail(ctx); err != nil {
		c.logger.WarnContext(ctx, "Could not forget pending email", applog.FieldError, err)
	}
	return c.transition(ctx, State{Phase: LoggedOut, Step: AwaitingEmail}), nil
}

// Verify exchanges code for a token and persists it.
func (c *Controller) Verify(ctx context.Context, code string) (State, error) {
	code = core.NormalizeOTP(code)
	if err := core.ValidateOTP(code); err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	if c.state.Phase != LoggedOut || c.state.Step != AwaitingCode {
		c.mu.Unlock()
		return c.State(), ErrWrongState
	}
	email := c.state.Email
	c.mu.Unlock()

	token, err := c.client.VerifyOTP(ctx, email, code)
	if err != nil {
		c.logger.WarnContext(ctx, "OTP verification failed", applog.FieldOperation, applog.OpVerifyOTP, applog.FieldError, err)
		return c.State(), err
	}

	// The token is only kept if nothing else changed the state meanwhile,
	// so a stored token always means LoggedIn.
	c.mu.Lock()
	if !c.awaitingCodeFor(email) {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "Login state moved on during verification, token discarded", applog.FieldOperation, applog.OpVerifyOTP)
		return c.State(), ErrWrongState
	}
	if err := c.store.Set(ctx, token); err != nil {
		c.mu.Unlock()
		return c.State(), fmt.Errorf("persist session: %w", err)
	}
	if err := c.store.ClearPendingEmail(ctx); err != nil {
		c.logger.WarnContext(ctx, "Could not forget pending email", applog.FieldError, err)
	}
	return c.transition(ctx, State{Phase: LoggedIn}), nil
}

// Logout clears the session. Logging out while already logged out is a no-op.
func (c *Controller) Logout(ctx context.Context) (State, error) {
	c.mu.Lock()
	if err := c.store.Clear(ctx); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	if err := c.store.ClearPendingEmail(ctx); err != nil {
		c.logger.WarnContext(ctx, "Could not forget pending email", applog.FieldError, err)
	}
	c.logger.InfoContext(ctx, "Logged out", applog.FieldOperation, applog.OpLogout)
	return c.transition(ctx, State{Phase: LoggedOut, Step: AwaitingEmail}), nil
}

// Observe inspects an error returned by a protected call. An AuthError or a
// 401 from the transaction endpoints while logged in means the backend no
// longer accepts the token, so the session is dropped. It reports whether a
// logout happened.
func (c *Controller) Observe(ctx context.Context, err error) bool {
	if err == nil || !core.IsRejectedCredential(err) {
		return false
	}
	c.mu.Lock()
	if c.state.Phase != LoggedIn {
		c.mu.Unlock()
		return false
	}
	if cerr := c.store.Clear(ctx); cerr != nil {
		c.logger.ErrorContext(ctx, "Could not clear rejected session", applog.FieldError, cerr)
	}
	c.logger.WarnContext(ctx, "Backend rejected session, logging out", applog.FieldError, err)
	c.transition(ctx, State{Phase: LoggedOut, Step: AwaitingEmail})
	return true
}

// awaitingCodeFor reports whether the code step for email is still current.
// Backend calls run unlocked, so each operation re-checks its precondition
// before committing. c.mu must be held.
func (c *Controller) awaitingCodeFor(email string) bool {
	return c.state.Phase == LoggedOut && c.state.Step == AwaitingCode && c.state.Email == email
}

// transition must be called with c.mu held; it releases the lock before
// notifying listeners.
func (c *Controller) transition(ctx context.Context, next State) State {
	prev := c.state
	c.state = next
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if prev != next {
		c.logger.DebugContext(ctx, "Login state changed",
			"from", string(prev.Phase)+"/"+string(prev.Step),
			"to", string(next.Phase)+"/"+string(next.Step))
		for _, fn := range listeners {
			fn(next)
		}
	}
	return next
}
