package app

import (
	"net/http"
	"time"
)

func (a *App) registerHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", a.handleReady)

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	if a.auth != nil {
		a.auth.Register(mux)
		if a.investor != nil {
			a.investor.Register(mux, a.auth.RequireSession)
		}
	}
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	var (
		pool  = a.store.pool
		redis = a.store.redis
	)

	if a.cfg.ReadinessRequireDB && pool == nil {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	if pool != nil {
		if err := PingDB(r.Context(), pool, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.db.not_ready", "err", err)
			return
		}
	}

	if redis != nil {
		if err := PingRedis(r.Context(), redis, 2*time.Second); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.redis.not_ready", "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
