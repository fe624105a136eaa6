package cycles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/core/model"
)

type memStore struct {
	recs []logging.LogRecord
	last logging.LogQuery
	err  error
}

func (m *memStore) Append(ctx context.Context, r logging.LogRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	var res []logging.LogRecord
	for _, r := range m.recs {
		if q.Kind != "" && r.Kind != q.Kind {
			continue
		}
		if q.CycleID != "" && r.CycleID != q.CycleID {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	cmd := model.NewCommand(model.StorageBattery, -10, time.Now(), 0)
	_ = store.Append(context.Background(), logging.LogRecord{Timestamp: time.Now(), Kind: logging.KindCycle, CycleID: "c1", Outcome: "planned"})
	_ = store.Append(context.Background(), logging.LogRecord{Timestamp: time.Now(), Kind: logging.KindCommand, CycleID: "c1", Outcome: "executed", Command: &cmd})
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/cycles?kind=command&cycle_id=c1&storage=bess&start=2025-07-01T00:00:00Z", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []logging.LogRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].Command == nil || out[0].Command.Setpoint != -10 {
		t.Fatalf("unexpected records %#v", out)
	}
	if store.last.Storage != model.StorageBattery || store.last.Start.IsZero() {
		t.Fatalf("query not decoded: %#v", store.last)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/cycles", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLogHandler_BadRequests(t *testing.T) {
	h := NewLogHandler(&memStore{}, "")
	for _, url := range []string{"/cycles?start=yesterday", "/cycles?kind=signal"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", url, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", url, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/cycles", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestLogHandler_EmptyAndError(t *testing.T) {
	rr := httptest.NewRecorder()
	NewLogHandler(&memStore{}, "").ServeHTTP(rr, httptest.NewRequest("GET", "/cycles", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "[]\n" {
		t.Fatalf("unexpected empty response %d %q", rr.Code, rr.Body.String())
	}
	rr = httptest.NewRecorder()
	NewLogHandler(&memStore{err: errors.New("disk")}, "").ServeHTTP(rr, httptest.NewRequest("GET", "/cycles", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}
