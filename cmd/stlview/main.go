// Command stlview serves an interactive STL mesh viewer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/soypat/stlview/internal/config"
	"github.com/soypat/stlview/internal/logger"
	"github.com/soypat/stlview/internal/session"
	"github.com/soypat/stlview/internal/upload"
	"github.com/soypat/stlview/internal/web"
	"github.com/soypat/stlview/mesh"
	"github.com/soypat/stlview/scene"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "")
		logger.Fatal("loading configuration", zap.Error(err))
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		logger.Init("info", "")
		logger.Fatal("initializing logger", zap.Error(err))
	}
	defer logger.Sync()

	def, err := loadDefault(cfg.Mesh.DefaultPath)
	if err != nil {
		logger.Fatal("bundled mesh unavailable", zap.Error(err))
	}
	logger.Log.Info("default mesh loaded",
		zap.String("path", cfg.Mesh.DefaultPath),
		zap.Int("triangles", len(def.Triangles)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(def)
	go store.Sweep(ctx, cfg.Session.TTL, cfg.Session.SweepInterval)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: web.NewServer(store, web.Options{
			Layout: scene.Layout{
				Width:       cfg.Render.Width,
				Height:      cfg.Render.Height,
				Supersample: cfg.Render.Supersample,
				Background:  cfg.Render.Background,
			},
			DefaultPath: cfg.Mesh.DefaultPath,
			TempDir:     cfg.Mesh.TempDir,
		}),
	}
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Log.Info("serving", zap.String("addr", "http://"+cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
	<-closed
	logger.Log.Info("stopped")
}

// loadDefault decodes the bundled mesh once at startup. Sessions share the
// result, so the file is never read again while serving.
func loadDefault(path string) (*mesh.Mesh, error) {
	src, err := upload.Acquire(nil, "", path, "")
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return mesh.Decode(src.Path)
}
