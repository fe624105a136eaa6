package cycles

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/model"
)

// NewLogHandler returns an HTTP handler exposing the cycle log via GET /cycles.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
//
// Query parameters: start, end (RFC3339), kind (cycle|command), cycle_id, storage.
func NewLogHandler(store logging.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := logging.LogQuery{}
		vals := r.URL.Query()
		for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := vals.Get(name)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+name, http.StatusBadRequest)
				return
			}
			*dst = t
		}
		switch k := logging.RecordKind(vals.Get("kind")); k {
		case "", logging.KindCycle, logging.KindCommand:
			q.Kind = k
		default:
			http.Error(w, "invalid kind", http.StatusBadRequest)
			return
		}
		q.CycleID = vals.Get("cycle_id")
		q.Storage = model.StorageKind(vals.Get("storage"))

		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
