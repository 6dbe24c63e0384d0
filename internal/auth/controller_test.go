package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"kitchenledger/internal/core"
	"kitchenledger/internal/session"
	"kitchenledger/internal/storage"
)

type fakeBackend struct {
	sent      []string
	otpErr    error
	verifyErr error
	token     string
}

func (f *fakeBackend) RequestOTP(_ context.Context, email string) (string, error) {
	if err := core.ValidateEmail(email); err != nil {
		return "", err
	}
	if f.otpErr != nil {
		return "", f.otpErr
	}
	f.sent = append(f.sent, email)
	return "OTP sent", nil
}

func (f *fakeBackend) VerifyOTP(_ context.Context, _, _ string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.token, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newController(t *testing.T, backend *fakeBackend) (*Controller, *session.Store, *fakeClock) {
	t.Helper()
	store := session.NewStore(storage.NewMemoryKV(), nil)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewController(backend, store, nil, WithClock(clock.Now)), store, clock
}

func TestStartWithoutToken(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})
	if got := c.State().Phase; got != Loading {
		t.Fatalf("initial phase = %s, want loading", got)
	}
	st, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Phase != LoggedOut || st.Step != AwaitingEmail {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestStartWithToken(t *testing.T) {
	c, store, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	if err := store.Set(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	st, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Phase != LoggedIn {
		t.Fatalf("phase = %s, want logged_in", st.Phase)
	}
}

func TestFullLoginFlow(t *testing.T) {
	backend := &fakeBackend{token: "tok-abc"}
	c, store, _ := newController(t, backend)
	ctx := context.Background()

	var seen []State
	c.Subscribe(func(s State) { seen = append(seen, s) })

	if _, err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	st, err := c.RequestCode(ctx, " user.name@gmail.com ")
	if err != nil {
		t.Fatalf("request code: %v", err)
	}
	if st.Step != AwaitingCode || st.Email != "user.name@gmail.com" {
		t.Fatalf("unexpected state %+v", st)
	}

	st, err = c.Verify(ctx, "123 456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if st.Phase != LoggedIn {
		t.Fatalf("phase = %s, want logged_in", st.Phase)
	}
	if tok, ok := store.Token(ctx); !ok || tok != "tok-abc" {
		t.Fatalf("token = %q, %v", tok, ok)
	}
	if _, found, _ := store.PendingEmail(ctx); found {
		t.Error("pending email should be forgotten after login")
	}
	if len(seen) != 3 {
		t.Errorf("listener saw %d changes, want 3", len(seen))
	}

	st, err = c.Logout(ctx)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if st.Phase != LoggedOut || st.Step != AwaitingEmail {
		t.Fatalf("unexpected state after logout %+v", st)
	}
	if store.IsAuthenticated(ctx) {
		t.Fatal("logout must clear the token")
	}
}

func TestRequestCodeInvalidEmailStays(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	_, _ = c.Start(ctx)

	st, err := c.RequestCode(ctx, "user@yahoo.com")
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Step != AwaitingEmail {
		t.Fatalf("step = %s, want awaiting_email", st.Step)
	}
}

func TestVerifyRejectedCodeStays(t *testing.T) {
	c, store, _ := newController(t, &fakeBackend{verifyErr: core.ErrInvalidOTP})
	ctx := context.Background()
	_, _ = c.Start(ctx)
	_, _ = c.RequestCode(ctx, "chef@gmail.com")

	st, err := c.Verify(ctx, "000000")
	if !errors.Is(err, core.ErrInvalidOTP) {
		t.Fatalf("expected invalid OTP, got %v", err)
	}
	if st.Step != AwaitingCode {
		t.Fatalf("step = %s, want awaiting_code", st.Step)
	}
	if store.IsAuthenticated(ctx) {
		t.Fatal("no token should be stored")
	}
}

func TestVerifyShortCode(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	_, _ = c.Start(ctx)
	_, _ = c.RequestCode(ctx, "chef@gmail.com")

	if _, err := c.Verify(ctx, "12a4"); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWrongState(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})
	ctx := context.Background()

	if _, err := c.RequestCode(ctx, "chef@gmail.com"); !errors.Is(err, ErrWrongState) {
		t.Errorf("request before start: %v", err)
	}
	_, _ = c.Start(ctx)
	if _, err := c.Verify(ctx, "123456"); !errors.Is(err, ErrWrongState) {
		t.Errorf("verify without code step: %v", err)
	}
	if _, err := c.ResendCode(ctx); !errors.Is(err, ErrWrongState) {
		t.Errorf("resend without code step: %v", err)
	}
	if _, err := c.ChangeEmail(ctx); !errors.Is(err, ErrWrongState) {
		t.Errorf("change email without code step: %v", err)
	}
}

func TestResendCooldown(t *testing.T) {
	backend := &fakeBackend{}
	c, _, clock := newController(t, backend)
	ctx := context.Background()
	_, _ = c.Start(ctx)
	_, _ = c.RequestCode(ctx, "chef@gmail.com")

	clock.Advance(20 * time.Second)
	wait, err := c.ResendCode(ctx)
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	if wait != 40*time.Second {
		t.Errorf("wait = %v, want 40s", wait)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d codes, want 1", len(backend.sent))
	}

	clock.Advance(40 * time.Second)
	if _, err := c.ResendCode(ctx); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	if len(backend.sent) != 2 {
		t.Fatalf("sent %d codes, want 2", len(backend.sent))
	}
	if got := c.ResendIn(); got != ResendCooldown {
		t.Errorf("ResendIn = %v, want %v", got, ResendCooldown)
	}
}

func TestChangeEmail(t *testing.T) {
	c, store, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	_, _ = c.Start(ctx)
	_, _ = c.RequestCode(ctx, "chef@gmail.com")

	st, err := c.ChangeEmail(ctx)
	if err != nil {
		t.Fatalf("change email: %v", err)
	}
	if st.Step != AwaitingEmail || st.Email != "" {
		t.Fatalf("unexpected state %+v", st)
	}
	if _, found, _ := store.PendingEmail(ctx); found {
		t.Error("pending email should be cleared")
	}
}

func TestStartResumesPendingEmail(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := session.NewStore(kv, nil)
	ctx := context.Background()

	first := NewController(&fakeBackend{}, store, nil)
	_, _ = first.Start(ctx)
	_, _ = first.RequestCode(ctx, "chef@gmail.com")

	second := NewController(&fakeBackend{token: "tok"}, store, nil)
	st, err := second.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Step != AwaitingCode || st.Email != "chef@gmail.com" {
		t.Fatalf("unexpected state %+v", st)
	}
	if _, err := second.Verify(ctx, "123456"); err != nil {
		t.Fatalf("verify in second process: %v", err)
	}
}

func TestObserveForcesLogout(t *testing.T) {
	c, store, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	_ = store.Set(ctx, "stale")
	_, _ = c.Start(ctx)

	if c.Observe(ctx, &core.ServiceError{Op: "x", Status: 500}) {
		t.Fatal("service errors must not log out")
	}
	if !c.Observe(ctx, core.ErrAuthFailed) {
		t.Fatal("auth error should force logout")
	}
	if st := c.State(); st.Phase != LoggedOut || st.Step != AwaitingEmail {
		t.Fatalf("unexpected state %+v", st)
	}
	if store.IsAuthenticated(ctx) {
		t.Fatal("rejected token should be cleared")
	}
	if c.Observe(ctx, core.ErrAuthFailed) {
		t.Fatal("second observe while logged out should be a no-op")
	}
}

func TestObserveTransaction401(t *testing.T) {
	c, store, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	_ = store.Set(ctx, "stale")
	_, _ = c.Start(ctx)

	err := fmt.Errorf("refresh: %w", &core.ServiceError{Op: "fetch transactions", Status: 401, Body: "Unauthorized"})
	if !c.Observe(ctx, err) {
		t.Fatal("401 from the transaction endpoints should force logout")
	}
	if c.State().Phase != LoggedOut || store.IsAuthenticated(ctx) {
		t.Fatalf("state %+v, token stored %v", c.State(), store.IsAuthenticated(ctx))
	}
}

// gatedBackend blocks RequestOTP calls for gatedEmail until release is closed.
type gatedBackend struct {
	fakeBackend
	gatedEmail string
	entered    chan struct{}
	release    chan struct{}
}

func (g *gatedBackend) RequestOTP(ctx context.Context, email string) (string, error) {
	if email == g.gatedEmail {
		close(g.entered)
		<-g.release
	}
	return g.fakeBackend.RequestOTP(ctx, email)
}

func newGated(t *testing.T, gatedEmail string) (*Controller, *session.Store, *gatedBackend) {
	t.Helper()
	g := &gatedBackend{
		fakeBackend: fakeBackend{token: "tok-1"},
		gatedEmail:  gatedEmail,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store := session.NewStore(storage.NewMemoryKV(), nil)
	c := NewController(g, store, nil)
	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return c, store, g
}

func TestRequestCodeDuringVerifyKeepsLogin(t *testing.T) {
	c, store, g := newGated(t, "b@gmail.com")
	ctx := context.Background()
	if _, err := c.RequestCode(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := c.RequestCode(ctx, "b@gmail.com")
		errc <- err
	}()
	<-g.entered

	if _, err := c.Verify(ctx, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	close(g.release)

	if err := <-errc; !errors.Is(err, ErrWrongState) {
		t.Fatalf("late RequestCode err = %v, want ErrWrongState", err)
	}
	st := c.State()
	if st.Phase != LoggedIn {
		t.Fatalf("phase = %s, want logged_in", st.Phase)
	}
	if !store.IsAuthenticated(ctx) {
		t.Fatal("token of the completed login must stay stored")
	}
	if email, found, _ := store.PendingEmail(ctx); found && email != "" {
		t.Fatalf("pending email %q left behind", email)
	}
}

// gatedVerify blocks VerifyOTP until release is closed.
type gatedVerify struct {
	fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (g *gatedVerify) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	close(g.entered)
	<-g.release
	return g.fakeBackend.VerifyOTP(ctx, email, code)
}

func TestVerifyDiscardedAfterEmailChange(t *testing.T) {
	g := &gatedVerify{
		fakeBackend: fakeBackend{token: "tok-1"},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store := session.NewStore(storage.NewMemoryKV(), nil)
	c := NewController(g, store, nil)
	ctx := context.Background()
	_, _ = c.Start(ctx)
	if _, err := c.RequestCode(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := c.Verify(ctx, "123456")
		errc <- err
	}()
	<-g.entered

	if _, err := c.ChangeEmail(ctx); err != nil {
		t.Fatalf("change email: %v", err)
	}
	close(g.release)

	if err := <-errc; !errors.Is(err, ErrWrongState) {
		t.Fatalf("verify err = %v, want ErrWrongState", err)
	}
	if st := c.State(); st.Phase != LoggedOut || st.Step != AwaitingEmail {
		t.Fatalf("state = %+v", st)
	}
	if store.IsAuthenticated(ctx) {
		t.Fatal("token stored while logged out")
	}
}
