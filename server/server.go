// Package server exposes the assistant over HTTP, WebSocket and MCP.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tanpawarit/salesops-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/salesops-assistant/agent/insights"
	statex "github.com/tanpawarit/salesops-assistant/agent/state"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8000"`
	HistoryCapacity int           `envconfig:"HISTORY_CAPACITY" split_words:"true" default:"20"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" split_words:"true" default:"localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type TurnHandler interface {
	HandleTurn(ctx context.Context, utterance string, history statex.History) (orchestrator.TurnResult, error)
}

type CardStore interface {
	List(ctx context.Context, f cardsx.ListFilter) (cardsx.Page, error)
	Get(ctx context.Context, id int64) (*cardsx.Card, error)
	Create(ctx context.Context, c *cardsx.Card) error
	Update(ctx context.Context, id int64, p cardsx.Patch) (*cardsx.Card, error)
	UpdateStatus(ctx context.Context, id int64, status cardsx.Status) (*cardsx.Card, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, now time.Time) (map[string]int, error)
}

type Advisor interface {
	Insights(ctx context.Context, card cardsx.Card) (insights.Insight, error)
	EmailSuggestion(ctx context.Context, card cardsx.Card, emailType string) (insights.EmailSuggestion, error)
}

// Deps are the collaborators the routes need. Metrics is optional and is
// mounted at MetricsPath, "/metrics" when empty.
type Deps struct {
	Turns       TurnHandler
	History     statex.Store
	Cards       CardStore
	Advisor     Advisor
	Metrics     http.Handler
	MetricsPath string
}

type Server struct {
	cfg   Config
	deps  Deps
	locks *statex.KeyedMutex
	now   func() time.Time
}

func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Turns == nil:
		return nil, errors.New("turn handler is required")
	case deps.History == nil:
		return nil, errors.New("history store is required")
	case deps.Cards == nil:
		return nil, errors.New("card store is required")
	case deps.Advisor == nil:
		return nil, errors.New("advisor is required")
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = statex.DefaultCapacity
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8000"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{cfg: cfg, deps: deps, locks: statex.NewKeyedMutex(), now: time.Now}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("POST /chat/message", s.handleChatMessage)
	mux.HandleFunc("GET /chat/ws", s.handleChatWS)
	mux.HandleFunc("DELETE /chat/conversations/{id}", s.handleResetConversation)
	mux.HandleFunc("POST /chat/insights/{id}", s.handleInsights)
	mux.HandleFunc("POST /chat/email-suggestion/{id}", s.handleEmailSuggestion)

	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("POST /cards", s.handleCreateCard)
	mux.HandleFunc("GET /cards/stats/summary", s.handleCardSummary)
	mux.HandleFunc("GET /cards/{id}", s.handleGetCard)
	mux.HandleFunc("PUT /cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("PATCH /cards/{id}/status", s.handleUpdateCardStatus)
	mux.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard)

	if s.deps.Metrics != nil {
		path := strings.TrimSpace(s.deps.MetricsPath)
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, s.deps.Metrics)
	}

	return withRequestLog(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log := logx.Component("server")
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		logger := logx.Component("http").With().Str("request_id", uuid.NewString()).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		var ev *zerolog.Event
		if rec.status >= http.StatusInternalServerError {
			ev = logger.Error()
		} else {
			ev = logger.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(started)).
			Msg("request handled")
	})
}
