// taskboard server: task CRUD with an append-only audit log, a Basic-auth
// gated JSON API, and a server-rendered browser UI.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/taskboard/internal/api"
	"github.com/kuitang/taskboard/internal/audit"
	"github.com/kuitang/taskboard/internal/auth"
	"github.com/kuitang/taskboard/internal/config"
	"github.com/kuitang/taskboard/internal/db"
	"github.com/kuitang/taskboard/internal/obs"
	"github.com/kuitang/taskboard/internal/tasks"
	"github.com/kuitang/taskboard/internal/web"
)

func main() {
	obs.Init()
	log := obs.Pkg("main")

	addr, configFile := config.ParseFlags()
	cfg := config.MustLoadConfig(addr, configFile)
	cfg.PrintStartupSummary()

	store, err := db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	if err != nil {
		log.Error("open_store_failed", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	logService := audit.NewService(store)
	taskService := tasks.NewService(store, logService)

	renderer, err := web.NewRenderer(cfg.TemplatesDir)
	if err != nil {
		log.Error("template_parse_failed", "dir", cfg.TemplatesDir, "error", err)
		os.Exit(1)
	}

	// Everything behind the credential gate: JSON API and browser UI.
	protected := http.NewServeMux()
	api.NewHandler(taskService, logService).RegisterRoutes(protected)
	web.NewHandler(taskService, logService, renderer).RegisterRoutes(protected)

	gate := auth.NewBasic(cfg.BasicAuthUser, cfg.BasicAuthPass, cfg.AuthRealm)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	root.Handle("/", gate.Middleware(protected))

	handler := obs.RequestContextMiddleware(obs.AccessLogMiddleware("server", root))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown_incomplete", "error", err)
		}
	}()

	log.Info("listening", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_failed", "error", err)
		os.Exit(1)
	}
	log.Info("server_stopped")
}
