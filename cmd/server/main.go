package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/agent"
	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/platform/cache"
	"github.com/p-n-ai/pai-quiz/internal/platform/config"
	"github.com/p-n-ai/pai-quiz/internal/platform/database"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

const (
	readyTimeout  = 2 * time.Second
	pruneInterval = 5 * time.Minute
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func run(ctx context.Context, cfg *config.Config) error {
	loader, err := curriculum.NewLoader(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	catalog := loader.Catalog()

	var (
		checks []healthChecker
		sinks  agent.MultiEventLogger
	)

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		pg := agent.NewPostgresEventLogger(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		checks = append(checks, db)
		sinks = append(sinks, pg)
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer c.Close()

		checks = append(checks, c)
		sinks = append(sinks, agent.NewRedisEventLogger(c.Client, c.EventStream()))
	}

	var events agent.EventLogger = agent.NopEventLogger{}
	if len(sinks) > 0 {
		events = sinks
	}

	store := agent.NewSessionStore(catalog)
	engine := agent.NewEngine(agent.EngineConfig{
		Catalog: catalog,
		Store:   store,
		Events:  events,
	})

	gw := chat.NewGateway()
	var ws *chat.WebSocketChannel
	if cfg.Telegram.BotToken != "" {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		gw.Register("telegram", tg)
	}
	if cfg.WebSocket.Enabled {
		ws = chat.NewWebSocketChannel(cfg.WebSocket.OriginPatterns...)
		ws.OnDisconnect = store.Delete
		gw.Register("websocket", ws)
	}

	if err := gw.StartAll(ctx, func(msg chat.InboundMessage) {
		handleInbound(ctx, engine, gw, msg)
	}); err != nil {
		return err
	}
	defer func() {
		if err := gw.StopAll(); err != nil {
			slog.Error("failed to stop channels", "error", err)
		}
	}()

	go pruneSessions(ctx, store, cfg.Session.IdleTimeout)

	deps := muxDeps{catalog: catalog, checks: checks}
	if ws != nil {
		deps.wsPath = cfg.WebSocket.Path
		deps.ws = ws
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "subjects", catalog.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// sender is the part of chat.Gateway used to deliver replies.
type sender interface {
	Send(ctx context.Context, msg chat.OutboundMessage) error
}

// processor is the part of agent.Engine used to answer messages.
type processor interface {
	ProcessMessage(ctx context.Context, msg chat.InboundMessage) (chat.OutboundMessage, error)
}

func handleInbound(ctx context.Context, p processor, s sender, msg chat.InboundMessage) {
	reply, err := p.ProcessMessage(ctx, msg)
	if err != nil {
		slog.Error("failed to process message", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		return
	}
	if err := s.Send(ctx, reply); err != nil {
		slog.Error("failed to send reply", "channel", reply.Channel, "user_id", reply.UserID, "error", err)
	}
}

func pruneSessions(ctx context.Context, store *agent.SessionStore, maxAge time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.PruneIdle(maxAge); n > 0 {
				slog.Info("pruned idle sessions", "count", n, "remaining", store.Len())
			}
		}
	}
}

type healthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

type muxDeps struct {
	catalog *quiz.Catalog
	checks  []healthChecker
	wsPath  string
	ws      http.Handler
}

// newMux creates the HTTP router with health, catalog and chat endpoints.
func newMux(deps muxDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(deps.checks))
	mux.HandleFunc("GET /catalog", handleCatalog(deps.catalog))
	if deps.ws != nil {
		mux.Handle("GET "+deps.wsPath, deps.ws)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		failed := map[string]string{}
		for _, c := range checks {
			if err := c.HealthCheck(ctx); err != nil {
				slog.Warn("readiness check failed", "dependency", c.Name(), "error", err)
				failed[c.Name()] = err.Error()
			}
		}

		if len(failed) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ready"}`))
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"failed": failed,
		})
	}
}

type catalogLevel struct {
	Name      string `json:"name"`
	Questions int    `json:"questions"`
}

type catalogSubject struct {
	Name   string         `json:"name"`
	Levels []catalogLevel `json:"levels"`
}

func handleCatalog(catalog *quiz.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects := []catalogSubject{}
		for _, s := range catalog.Subjects() {
			cs := catalogSubject{Name: s.Name}
			for _, l := range s.Levels {
				cs.Levels = append(cs.Levels, catalogLevel{Name: l.Name, Questions: len(l.Questions)})
			}
			subjects = append(subjects, cs)
		}
		writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
