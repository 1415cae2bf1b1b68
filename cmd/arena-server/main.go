package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/archive"
	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/boardimg"
	appcfg "github.com/kapu/chess-arena/internal/config"
	"github.com/kapu/chess-arena/internal/httpapi"
	"github.com/kapu/chess-arena/internal/msgcat"
	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	catalog, err := msgcat.New(cfg.MessageTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	notice := func(key string, data map[string]any) string {
		text, err := catalog.Render(msgcat.Key(key), data)
		if err != nil {
			obslog.L().Warn("notice_render_error", zap.String("key", key), zap.Error(err))
			return ""
		}
		return text
	}

	registry := arena.NewRegistry(notice)

	// Archival sinks are optional: an unset URL disables that sink.
	var store *archive.Store
	if cfg.RedisURL != "" {
		store, err = archive.NewStore(cfg.RedisURL, cfg.ArchiveTTL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
	}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres init error: %v", err)
		}
	}
	archiver := archive.NewArchiver(store, repo)

	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(registry, hub, archiver)
	wsServer := ws.NewServer(hub, dispatcher, cfg.AllowedOrigins)

	api := httpapi.New(registry, boardimg.New(), wsServer.Handle)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Router(),
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("server_shutdown_begin")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("server_shutdown_error", zap.Error(err))
	}

	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	obslog.L().Info("server_shutdown_done")
}
