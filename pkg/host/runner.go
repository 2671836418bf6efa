package host

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

// Run executes the host service: bootstrap from disk, start the version
// poller and the config-directory watcher, serve metrics when
// configured, and block until SIGINT/SIGTERM.
func Run(config *HostConfig, registry *gameserver.TypeRegistry, logger logging.Logger) error {
	logger.Infof("Host runner starting...")

	if err := ValidateConfig(config); err != nil {
		return err
	}

	h, err := NewHost(config.HostOptions(), registry, logger)
	if err != nil {
		return err
	}

	if err := h.Bootstrap(); err != nil {
		return err
	}

	if err := h.Poller().Start(); err != nil {
		return errors.NewInternalError("failed to start version poller", err)
	}
	defer h.Poller().Stop()

	watcher, err := h.Store().Watch(config.Host.ConfigWatchDebounce, h.Rediscover)
	if err != nil {
		return err
	}
	defer watcher.Close()

	var metricsServer *http.Server
	if config.Metrics.ListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: config.Metrics.ListenAddress, Handler: mux}
		go func() {
			logger.Infof("Metrics listening on %s", config.Metrics.ListenAddress)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	logger.Infof("Host is ready, instances: %d, types: %v", len(h.ListAll()), h.SupportedTypes())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	received := <-sig
	logger.Infof("Received signal %v, shutting down...", received)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Infof("Host runner stopped")
	return nil
}
