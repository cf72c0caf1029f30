package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chainwatch/internal/address"
	"chainwatch/internal/chain"
	"chainwatch/internal/config"
	"chainwatch/internal/confirm"
	"chainwatch/internal/indexer"
	"chainwatch/internal/invoice"
	"chainwatch/internal/metrics"
	"chainwatch/internal/orderstore"
	"chainwatch/internal/server"
	"chainwatch/internal/watcher"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := cfg.Registry()
	if err != nil {
		logger.Fatalf("failed to build chain registry: %v", err)
	}

	store, closeStore, err := orderstore.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		logger.Fatalf("failed to open order store: %v", err)
	}
	defer closeStore()

	var sink confirm.Sink = confirm.LogSink{Logger: logger}
	if cfg.Sink.URL != "" {
		httpSink, err := confirm.NewHTTPSink(confirm.HTTPSinkConfig{
			BaseURL: cfg.Sink.URL,
			Path:    cfg.Sink.Path,
			Secret:  cfg.Sink.Secret,
			Timeout: cfg.SinkTimeout(),
		})
		if err != nil {
			logger.Fatalf("failed to build confirmation sink: %v", err)
		}
		sink = httpSink
		logger.WithField("url", httpSink.URL()).Info("confirmations will be posted")
	} else {
		logger.Warn("no sink url configured; confirmations are only logged")
	}

	indexers := make(map[chain.ID]indexer.Client, reg.Len())
	newIndexer := func(c chain.Config) (indexer.Client, error) {
		cli, err := indexer.NewRPCClient(ctx, indexer.RPCClientConfig{
			Endpoint: c.IndexerEndpoint,
			Timeout:  cfg.RPCTimeout(),
		})
		if err != nil {
			return nil, err
		}
		indexers[c.ID] = cli
		return cli, nil
	}
	defer func() {
		for _, cli := range indexers {
			if closer, ok := cli.(interface{ Close() }); ok {
				closer.Close()
			}
		}
	}()

	metricsRegistry := metrics.NewRegistry()
	supervisor, err := watcher.FromRegistry(reg, store, newIndexer, sink,
		watcher.WithLogger(logger),
		watcher.WithMetrics(metricsRegistry),
	)
	if err != nil {
		logger.Fatalf("failed to build watchers: %v", err)
	}

	codec := address.NewCodec(cfg.DecodeMode())
	if codec.Mode() == address.ModePermissive {
		logger.WithField("env", cfg.Env).Warn("permissive segwit decoding is enabled")
	}

	apiServer := server.NewServer(cfg, server.Deps{
		Registry: reg,
		Codec:    codec,
		Invoices: invoice.NewGenerator(cfg.Invoice.Seed),
		Orders:   store,
		Watchers: supervisor,
		Indexers: indexers,
		Metrics:  metricsRegistry,
		Logger:   logger,
	})

	supervisor.Start(ctx)

	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HMACClockSkew())
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("failed to shut down server: %v", err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- supervisor.Stop() }()
	select {
	case err := <-waitDone:
		if err != nil {
			logger.Errorf("watchers stopped with error: %v", err)
		}
	case <-time.After(cfg.RPCTimeout() + time.Second):
		logger.Warn("watchers did not stop in time")
	}
}
