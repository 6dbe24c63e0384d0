package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"kitchenledger/internal/auth"
	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/services"
)

const defaultRestaurantName = "Cloud Kitchen"

var templateFuncs = template.FuncMap{
	"money": core.FormatAmount,
	"date": func(ts core.Timestamp) string {
		return ts.Display("02 Jan 2006")
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"lower":     strings.ToLower,
	"isExpense": func(k core.Kind) bool { return k == core.Expense },
}

type pageData struct {
	Session    sessionView
	LoggedIn   bool
	Restaurant restaurantView
	HasName    bool
	Month      string
	Dashboard  dashboardView
	Table      []core.Transaction
	Filter     services.Filter
	Categories []string
	Sources    []string
	Error      string
}

// handleIndex renders the login steps or the dashboard. Backend failures
// are shown inline; a rejected token drops back to the login step.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageData{
		Month:      monthBadge(s.now()),
		Categories: core.ExpenseCategories,
		Sources:    core.RevenueSources,
	}

	if s.auth.State().Phase == auth.LoggedIn {
		s.fillDashboard(r, &data)
	}
	data.Session = s.sessionView()
	data.LoggedIn = data.Session.Phase == auth.LoggedIn

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Index template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "template rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) fillDashboard(r *http.Request, data *pageData) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	// fail reports whether the session ended.
	fail := func(op string, err error) bool {
		if s.auth.Observe(ctx, err) {
			logger.WarnContext(ctx, "Session ended by backend", applog.FieldOperation, op)
			return true
		}
		logger.WarnContext(ctx, "Dashboard data unavailable", applog.FieldOperation, op, applog.FieldError, err)
		if data.Error == "" {
			data.Error = err.Error()
		}
		return false
	}

	profile, err := s.restaurantProfile(r)
	if err != nil && fail(applog.OpRestaurant, err) {
		return
	}
	data.Restaurant = newRestaurantView(profile)
	data.HasName = profile.HasName()

	filter, err := ParseTableFilter(r.URL.Query())
	if err != nil {
		data.Error = err.Error()
		filter, _ = services.ParseFilter("", "", "")
	}
	data.Filter = filter

	snap, err := s.loadedSnapshot(r)
	if err != nil {
		if fail(applog.OpRefresh, err) {
			return
		}
		snap = s.dash.Snapshot()
	}
	data.Dashboard = s.dashboardView(snap)
	data.Table = filter.Apply(snap.Transactions)
}
