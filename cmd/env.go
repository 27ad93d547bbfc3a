package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/auth"
	"github.com/quipcam/quipcam/internal/capture"
	"github.com/quipcam/quipcam/internal/config"
	"github.com/quipcam/quipcam/internal/gateway"
	"github.com/quipcam/quipcam/internal/logger"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/storage"
	"go.uber.org/zap"
)

// env holds everything a command needs to talk to the backend.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	store   storage.Store
	tokens  *auth.Session
	router  *nav.Router
	client  *gateway.Client
	capture *capture.Session
}

// openEnv loads config, opens the token store and builds the gateway.
// The router starts on start; the controller's Start applies the guard.
func openEnv(start nav.Page) (*env, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if path, err := cfg.LogPath(); err == nil {
		cfg.Log.File = path
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			cfg.Log.File = ""
		}
	}
	log := logger.New(cfg.Log)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewSession(store)
	if err := tokens.Load(); err != nil {
		store.Close()
		return nil, err
	}

	router := nav.NewRouter(start)
	client := gateway.New(cfg.ServerURL, tokens, router,
		gateway.WithTimeout(cfg.Timeout()),
		gateway.WithLogger(log.Named("gateway")))

	log.Debug("env ready",
		zap.String("server", cfg.ServerURL),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("logged_in", tokens.HasToken()))

	return &env{
		cfg:     cfg,
		log:     log,
		store:   store,
		tokens:  tokens,
		router:  router,
		client:  client,
		capture: capture.NewSession(capture.WithMaxUpload(int64(cfg.Capture.MaxUploadMB) * 1024 * 1024)),
	}, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Driver == "memory" {
		return storage.NewMemoryStore(), nil
	}
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	return store, nil
}

func (r *env) Close() {
	if err := r.store.Close(); err != nil {
		r.log.Warn("close token store", zap.Error(err))
	}
	_ = r.log.Sync()
}

// controller builds a controller that reports to ui.
func (r *env) controller(ui app.UI) *app.Controller {
	devices := app.Devices{
		Camera:     capture.NewCommandCamera(r.cfg.Capture.CameraCommand),
		Screen:     &capture.ScreenSource{},
		Clipboard:  capture.ClipboardSource{},
		Microphone: capture.NewCommandMicrophone(r.cfg.Capture.MicrophoneCommand),
	}
	return app.NewController(r.client, r.tokens, r.router, r.capture, devices, ui, r.log.Named("app"))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
