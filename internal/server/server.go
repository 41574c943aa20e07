// Package server provides the HTTP API, WebSocket progress streaming, and
// server lifecycle management.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/config"
)

// Start wires the routes, applies middleware, and serves until ctx is
// cancelled. Returns the actual listen address (useful with port 0 in
// tests) and the WebSocket hub for wiring progress broadcasts.
func Start(ctx context.Context, cfg *config.Config, h *Handlers) (string, *WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := NewWebSocketHub(cfg.Server.Host, cfg.Server.Port)
	go wsHub.Run()

	// 10 req/sec sustained, burst of 20.
	limiter := newRateLimiter(10.0, 20)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/evaluations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitEvaluation(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/evaluations/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitEvaluationBatch(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/evaluations/realtime", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitEvaluationRealtime(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetProgress(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitTag(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Search(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/search/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.BatchSearch(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/search/hit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.ReportSearchHit(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/ask", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Ask(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/ask/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.BatchAsk(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/rewards/{employee}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetRewards(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/contributors/{employee}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetContributor(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/queue", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetQueue(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/queue/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.TriggerQueue(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	apiMux.HandleFunc("/api/config/economy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SetEconomyMode(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health endpoint sits outside the auth wrapper so monitors can always
	// reach it.
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Health(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.Handle("/api/", requireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth, origin validation handles security).
	mux.Handle("/ws", wsHub)

	handler := rateLimitMiddleware(mux, limiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("ERROR: server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: server shutdown: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("HTTP server listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}
