// Command weathermap serves the network weathermap HTTP API: topology
// discovery, link verification, and live/historic link measurements
// merged from the configured TSDB and SNMP backends.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netweather/weathermap/internal/api"
	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/engine"
	"github.com/netweather/weathermap/internal/logging"
)

func main() {
	cfg, err := config.LoadEnvConfig()
	if err != nil {
		fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel == "debug")
	if err != nil {
		fatalf("logging: %v", err)
	}
	defer logger.Sync()

	if cfg.WeakAuthTokenConfigured {
		logger.Warn("one or more WEATHERMAP_AUTH_TOKENS entries are weak; use a longer, higher-entropy value")
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		fatalf("engine: %v", err)
	}
	eng.Start()

	srv := api.NewServer(eng)
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Infow("listening", "address", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runtimeErr error
	select {
	case sig := <-quit:
		logger.Infow("received signal, shutting down", "signal", sig.String())
	case err := <-serverErrCh:
		runtimeErr = err
		logger.Errorw("server runtime error, shutting down", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("server shutdown error", "error", err)
	}
	eng.Stop()
	logger.Info("stopped")

	if runtimeErr != nil {
		fatalf("runtime server error: %v", runtimeErr)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(1)
}
