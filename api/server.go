package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kilianp07/ess-scheduler/api/cycles"
	"github.com/kilianp07/ess-scheduler/api/schedule"
	"github.com/kilianp07/ess-scheduler/core/dispatch/logging"
	"github.com/kilianp07/ess-scheduler/infra/logger"
)

// NewMux mounts /healthz, /schedule and, when store is set, /cycles. Only
// /healthz is served without the token.
func NewMux(src schedule.PlanSource, store logging.LogStore, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/schedule", schedule.NewHandler(src, token))
	if store != nil {
		mux.Handle("/cycles", cycles.NewLogHandler(store, token))
	}
	return mux
}

// Serve runs an HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log := logger.New("api")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
