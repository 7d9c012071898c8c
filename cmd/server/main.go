package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/config"
	"github.com/dohnagen/sheetgen/internal/export"
	"github.com/dohnagen/sheetgen/internal/ingest"
	"github.com/dohnagen/sheetgen/internal/live"
	mw "github.com/dohnagen/sheetgen/internal/middleware"
	"github.com/dohnagen/sheetgen/internal/preset"
	"github.com/dohnagen/sheetgen/internal/qrlocate"
	"github.com/dohnagen/sheetgen/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local, err := openLocalStore(ctx, cfg)
	if err != nil {
		slog.Error("open preset store", "error", err)
		os.Exit(1)
	}
	defer local.Close()

	opts := []preset.Option{preset.WithSyncTimeout(cfg.SyncTimeout)}
	if remote := preset.NewClient(cfg.SyncBaseURL, nil); remote != nil {
		slog.Info("remote preset sync enabled", "base", remote.BaseURL())
		opts = append(opts, preset.WithRemote(remote))
	}
	presetService := preset.NewService(local, opts...)

	var refs ingest.RefStore = ingest.DataURLStore{}
	if cfg.CloudinaryURL != "" {
		cld, err := ingest.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			slog.Error("configure cloudinary", "error", err)
			os.Exit(1)
		}
		refs = cld
	}
	locator, closeLocator := qrlocate.Default()
	defer closeLocator()
	pipeline := ingest.New(refs, locator, ingest.WithMaxBytes(cfg.MaxUploadBytes))

	resolver := ingest.NewResolver(nil, cfg.RemoteImageHosts(ingest.CloudinaryHost)...)
	exporter := export.New(export.NewCompositor(resolver), cfg.ExportPixelRatio, slog.Default())

	hub := live.NewHub(slog.Default())
	go hub.Run(ctx)

	sessions := session.NewManager(hub, slog.Default())
	go sweepSessions(ctx, sessions, cfg.SessionIdle)

	authService := auth.NewService(cfg.JWTSecret, cfg.AllowAnonymous)
	authHandler := auth.NewHandler(authService)
	sessionHandler := session.NewHandler(sessions, pipeline, presetService, cfg.MaxUploadBytes)
	presetHandler := preset.NewHandler(presetService, sessions)
	exportHandler := export.NewHandler(exporter, sessions.Document)
	liveHandler := live.NewHandler(hub, sessions.Snapshot, cfg.Origins())

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/auth/session", authHandler.CreateSession).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	api.HandleFunc("/sessions", sessionHandler.Create).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/document", sessionHandler.Document).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/ops", sessionHandler.Ops).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/gestures", sessionHandler.Gestures).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/images", sessionHandler.Images).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/export.png", exportHandler.ExportPNG).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/presets/{presetId}/load", sessionHandler.LoadPreset).Methods("POST")

	api.HandleFunc("/presets", presetHandler.List).Methods("GET")
	api.HandleFunc("/presets", presetHandler.Save).Methods("POST")
	api.HandleFunc("/presets/import", presetHandler.Import).Methods("POST")
	api.HandleFunc("/presets/reconcile", presetHandler.Reconcile).Methods("POST")
	api.HandleFunc("/presets/{presetId}", presetHandler.Delete).Methods("DELETE")
	api.HandleFunc("/presets/{presetId}/export.json", presetHandler.Export).Methods("GET")

	// Browsers can't set headers on the upgrade, so the token rides in ?token=.
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authService.Middleware)
	ws.HandleFunc("/sessions/{sessionId}", liveHandler.ServeWS)

	addr := ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r), // answers preflights before routing
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)

		sessions.CloseAll()
		cancel()
	}()

	slog.Info("server starting", "addr", addr, "remote", presetService.HasRemote())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openLocalStore picks Postgres when DATABASE_URL is set and the embedded
// SQLite file otherwise.
func openLocalStore(ctx context.Context, cfg *config.Config) (preset.LocalStore, error) {
	if cfg.DatabaseURL != "" {
		slog.Info("local presets in postgres")
		pg, err := preset.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	slog.Info("local presets in sqlite", "path", cfg.PresetDBPath)
	lite, err := preset.OpenSQLite(ctx, cfg.PresetDBPath)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func sweepSessions(ctx context.Context, sessions *session.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(maxIdle); n > 0 {
				slog.Info("closed idle sessions", "count", n)
			}
		}
	}
}
