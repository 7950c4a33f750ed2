// Command combgraph runs the ingest pipeline's server process: the
// WebSocket ingest listener, the namespace registry, and the read-API
// HTTP surface, all wired from one process-lifetime configuration.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"combgraph/api/readapi"
	"combgraph/internal/contentstore"
	"combgraph/internal/coordinator"
	"combgraph/internal/events"
	"combgraph/internal/graph"
	"combgraph/internal/metrics"
	"combgraph/internal/recovery"
	"combgraph/internal/registry"
	"combgraph/internal/snapshot"
	"combgraph/internal/transform"
	"combgraph/pkg/config"
	"combgraph/pkg/utils"
)

func main() {
	log := logrus.New()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	if lvl, lerr := logrus.ParseLevel(cfg.Logging.Level); lerr == nil {
		log.SetLevel(lvl)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("combgraph exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer := func(prefix string) (*graph.Client, error) {
		return graph.Dial(prefix, graph.Config{
			Addr:           cfg.Graph.Addr,
			MaxSendMsgSize: cfg.Graph.MaxSendMsgSize,
			MaxRecvMsgSize: cfg.Graph.MaxRecvMsgSize,
		}, log)
	}

	reg := registry.New(cfg.Registry.DataDir, "", dialer, log)
	if err := reg.Load(); err != nil {
		return utils.Wrap(err, "load registry")
	}
	defer reg.Close()

	content, err := contentstore.New(contentstore.Config{
		GatewayURL:   cfg.ContentStore.GatewayURL,
		FetchTimeout: cfg.ContentStore.FetchTimeout,
		CacheDir:     cfg.ContentStore.CacheDir,
		CacheEntries: cfg.ContentStore.CacheEntries,
	}, log)
	if err != nil {
		return utils.Wrap(err, "start content store client")
	}

	snapDir := cfg.Registry.DataDir + "/snapshots"
	snap, err := snapshot.NewFileFacility(snapDir)
	if err != nil {
		return utils.Wrap(err, "start snapshot facility")
	}

	bus := events.NewBus(256, log)
	transformer := transform.New(log)

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.MustRegister(prometheus.DefaultRegisterer)

	co := coordinator.New(ctx, coordinator.Config{
		IdleTimeout:       cfg.Ingest.IdleTimeout,
		ProbeTimeout:      cfg.Ingest.ProbeTimeout,
		ForkBufferCap:     cfg.Ingest.ForkBufferCap,
		ForkRetention:     cfg.Ingest.ForkRetention,
		CleanupInterval:   cfg.Ingest.CleanupInterval,
		OrphanHeightDelta: cfg.Ingest.OrphanHeightDelta,
		WorkerQueueDepth:  cfg.Workers.PerNetwork * 64,
		WriteDeadline:     cfg.Graph.WriteDeadline,
		WriteRetries:      cfg.Graph.WriteRetries,
	}, reg, content, snap, recovery.MajorityThenLowestHash{}, transformer, bus, log)
	defer co.Close()
	go co.Run()

	ingestMux := http.NewServeMux()
	ingestMux.Handle("/ingest", co)
	ingestSrv := &http.Server{Addr: cfg.Ingest.ListenAddr, Handler: ingestMux}

	readRouter := readapi.NewRouter(reg, log, readapi.NewPrometheusHandler())
	readSrv := &http.Server{Addr: cfg.ReadAPI.ListenAddr, Handler: readRouter}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.Ingest.ListenAddr).Info("ingest listener starting")
		if err := ingestSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- utils.Wrap(err, "ingest listener")
		}
	}()
	go func() {
		log.WithField("addr", cfg.ReadAPI.ListenAddr).Info("read API starting")
		if err := readSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- utils.Wrap(err, "read API listener")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = ingestSrv.Shutdown(shutdownCtx)
	_ = readSrv.Shutdown(shutdownCtx)
	return nil
}
