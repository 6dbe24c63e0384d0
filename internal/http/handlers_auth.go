package http

import (
	"errors"
	"net/http"
	"time"

	"kitchenledger/internal/auth"
	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
)

type sessionView struct {
	auth.State
	ResendIn int `json:"resend_in"`
}

func (s *Server) sessionView() sessionView {
	return sessionView{State: s.auth.State(), ResendIn: seconds(s.auth.ResendIn())}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.writeError(w, r, applog.OpSendOTP, err)
		return
	}
	if _, err := s.auth.RequestCode(r.Context(), p.Get("email")); err != nil {
		s.writeError(w, r, applog.OpSendOTP, err)
		return
	}
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	wait, err := s.auth.ResendCode(r.Context())
	if errors.Is(err, auth.ErrCooldown) {
		NewJSONResponse().
			Status(http.StatusTooManyRequests).
			RetryAfter(wait).
			Body(errorBody{Error: err.Error(), RetryAfter: seconds(wait)}).
			Write(w)
		return
	}
	if err != nil {
		s.writeError(w, r, applog.OpSendOTP, err)
		return
	}
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.ChangeEmail(r.Context()); err != nil {
		s.writeError(w, r, applog.OpSendOTP, err)
		return
	}
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.writeError(w, r, applog.OpVerifyOTP, err)
		return
	}
	if _, err := s.auth.Verify(r.Context(), p.Get("code", "otp")); err != nil {
		s.writeError(w, r, applog.OpVerifyOTP, err)
		return
	}
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Logout(r.Context()); err != nil {
		s.writeError(w, r, applog.OpLogout, err)
		return
	}
	NewJSONResponse().Body(s.sessionView()).Write(w)
}

type restaurantView struct {
	RestaurantName *string `json:"restaurant_name"`
	Display        string  `json:"display_name"`
	Message        string  `json:"message,omitempty"`
}

func newRestaurantView(p core.RestaurantProfile) restaurantView {
	v := restaurantView{Display: p.DisplayName(defaultRestaurantName)}
	if p.HasName() {
		v.RestaurantName = p.Name
	}
	return v
}

// restaurantProfile returns the cached profile, fetching it on a miss.
func (s *Server) restaurantProfile(r *http.Request) (core.RestaurantProfile, error) {
	if p, ok := s.profile.Get(profileKey); ok {
		return p, nil
	}
	p, err := s.profiles.GetRestaurantProfile(r.Context())
	if err != nil {
		return core.RestaurantProfile{}, err
	}
	s.profile.Set(profileKey, p)
	return p, nil
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	p, err := s.restaurantProfile(r)
	if err != nil {
		s.writeError(w, r, applog.OpRestaurant, err)
		return
	}
	NewJSONResponse().Body(newRestaurantView(p)).Write(w)
}

func (s *Server) handleSetRestaurant(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.writeError(w, r, applog.OpRestaurant, err)
		return
	}
	name, err := core.ValidateRestaurantName(p.Get("restaurant_name", "name"))
	if err != nil {
		s.writeError(w, r, applog.OpRestaurant, err)
		return
	}
	msg, err := s.profiles.SetRestaurantProfile(r.Context(), name)
	if err != nil {
		s.writeError(w, r, applog.OpRestaurant, err)
		return
	}
	profile := core.RestaurantProfile{Name: &name}
	s.profile.Set(profileKey, profile)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Restaurant name updated", applog.FieldOperation, applog.OpRestaurant)

	view := newRestaurantView(profile)
	view.Message = msg
	NewJSONResponse().Body(view).Write(w)
}
