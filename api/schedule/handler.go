package schedule

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
	"github.com/kilianp07/ess-scheduler/pkg/export"
)

// PlanSource exposes the state of the rolling scheduler.
type PlanSource interface {
	Latest() *scheduler.Plan
	Pending() []model.ActuationCommand
}

// Response is the body of GET /schedule.
type Response struct {
	Plan    *scheduler.Plan          `json:"plan"`
	Pending []model.ActuationCommand `json:"pending"`
}

// NewHandler returns an HTTP handler exposing the last plan and the armed
// commands via GET /schedule. format=csv returns the plan as CSV.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(src PlanSource, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		plan := src.Latest()
		if r.URL.Query().Get("format") == string(export.FormatCSV) {
			if plan == nil {
				http.Error(w, "no plan yet", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, plan); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Response{Plan: plan, Pending: src.Pending()}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
