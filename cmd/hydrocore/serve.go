package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"hydrocore/internal/adapters/httpapi"
	"hydrocore/internal/blob"
	"hydrocore/internal/core"
	"hydrocore/internal/infra/events"
	"hydrocore/internal/infra/graph"
	"hydrocore/internal/modelfile"
)

// Neo4j connection settings; graph sync is enabled when the URI is set.
const (
	EnvNeo4jURI      = "HYDROCORE_NEO4J_URI"
	EnvNeo4jUser     = "HYDROCORE_NEO4J_USER"
	EnvNeo4jPassword = "HYDROCORE_NEO4J_PASSWORD"
)

func runServe(ctx context.Context, env *cliEnv, args []string) int {
	var addr, model, graphName string
	vars := varFlags{}
	_, ok := parseArgs(env, "serve", args, 0, func(fs *flag.FlagSet) {
		fs.StringVar(&addr, "addr", ":8080", "listen address")
		fs.StringVar(&model, "model", "", "import this HCL model into the store before serving")
		fs.StringVar(&graphName, "graph-model", "hydrocore", "model name used for the Neo4j subgraph")
		fs.Var(vars, "var", "override a model variable (name=value, repeatable)")
	})
	if !ok {
		return 2
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return reportError(env, err)
	}

	store, err := core.OpenPersistentStore(ctx, core.NewDefaultRulesEngine())
	if err != nil {
		return reportError(env, err)
	}
	defer closeStore(ctx, store)
	svc, err := newService(store, env.logger,
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewOTelTracer("hydrocore")))
	if err != nil {
		return reportError(env, err)
	}

	if url := os.Getenv(EnvNATSURL); url != "" {
		pub, err := events.Connect(url, "")
		if err != nil {
			return reportError(env, err)
		}
		defer func() { _ = pub.Close() }()
		unsubscribe := svc.Subscribe(pub.PublishChanges)
		defer unsubscribe()
	}
	if uri := os.Getenv(EnvNeo4jURI); uri != "" {
		driver, err := graph.Connect(ctx, uri, os.Getenv(EnvNeo4jUser), os.Getenv(EnvNeo4jPassword))
		if err != nil {
			return reportError(env, err)
		}
		defer func() { _ = driver.Close(context.Background()) }()
		syncer, err := graph.NewSyncer(graph.DriverOpener{Driver: driver}, graphName)
		if err != nil {
			return reportError(env, err)
		}
		unsubscribe := svc.Subscribe(syncer.OnCommit(svc))
		defer unsubscribe()
	}

	if model != "" {
		m, err := modelfile.Load(ctx, model, vars)
		if err != nil {
			return reportError(env, err)
		}
		if _, err := modelfile.Import(ctx, svc, m); err != nil {
			return reportError(env, err)
		}
	}

	artifacts, err := blob.Open(ctx)
	if err != nil {
		return reportError(env, err)
	}
	worker := httpapi.NewWorker(svc, artifacts, nil, os.Getenv(EnvWorkRoot))
	worker.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = worker.Stop(shutdownCtx)
	}()

	api := httpapi.NewHandler(svc)
	api.Exports = worker
	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(api, reg, env.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	env.logger.Info("serving", "addr", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return reportError(env, err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return reportError(env, err)
		}
	}
	env.logger.Info("server stopped")
	return 0
}
