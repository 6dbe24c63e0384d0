package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/services"
)

type dashboardView struct {
	services.Snapshot
	Recent []core.Transaction   `json:"recent"`
	Totals services.TableTotals `json:"totals"`
	Month  string               `json:"month"`
}

func (s *Server) dashboardView(snap services.Snapshot) dashboardView {
	return dashboardView{
		Snapshot: snap,
		Recent:   services.Recent(snap.Transactions, services.RecentCount),
		Totals:   services.Totals(snap.Transactions),
		Month:    monthBadge(s.now()),
	}
}

// monthBadge renders the header badge, e.g. "October 2026".
func monthBadge(t time.Time) string {
	return t.Format("January 2006")
}

// loadedSnapshot returns the current snapshot, refreshing first if nothing
// has been loaded in this session.
func (s *Server) loadedSnapshot(r *http.Request) (services.Snapshot, error) {
	if snap := s.dash.Snapshot(); snap.Loaded {
		return snap, nil
	}
	return s.dash.Refresh(r.Context())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loadedSnapshot(r)
	if err != nil {
		s.writeError(w, r, applog.OpRefresh, err)
		return
	}
	NewJSONResponse().Body(s.dashboardView(snap)).Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dash.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpRefresh, err)
		return
	}
	NewJSONResponse().Body(s.dashboardView(snap)).Write(w)
}

type tableView struct {
	Transactions []core.Transaction   `json:"transactions"`
	Count        int                  `json:"count"`
	Total        int                  `json:"total"`
	Totals       services.TableTotals `json:"totals"`
}

// handleListTransactions filters the loaded list; totals always cover every
// transaction, not just the matching ones.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTableFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	snap, err := s.loadedSnapshot(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	rows := filter.Apply(snap.Transactions)
	NewJSONResponse().Body(tableView{
		Transactions: rows,
		Count:        len(rows),
		Total:        len(snap.Transactions),
		Totals:       services.Totals(snap.Transactions),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	snap, err := s.dash.Add(r.Context(), p.DraftInput())
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.dashboardView(snap)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.dash.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Body(s.dashboardView(snap)).Write(w)
}
