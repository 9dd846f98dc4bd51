// Package main runs the UKS ledger HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"uksledger/internal/adapters/httpapi"
	"uksledger/internal/blob"
	"uksledger/internal/config"
	"uksledger/internal/core"
	"uksledger/internal/logger"
	"uksledger/internal/permit"
	"uksledger/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("uksd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to uks.yaml (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "uksd: %v\n", err)
		return 1
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stdout})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "uksd: %v\n", err)
		return 1
	}
	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("uksd stopped")
		return 1
	}
	return 0
}

// buildService wires the document store, archive store and metrics into a ledger service.
func buildService(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg *prometheus.Registry) (*core.Service, func(), error) {
	policy, err := core.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		return nil, nil, err
	}
	store, err := core.OpenDocumentStore(ctx, core.StorageConfig{
		Driver:      domain.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		FilePath:    cfg.Storage.FilePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}
	cleanup := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close document store")
			}
		}
	}
	archive, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          cfg.Blob.S3.Bucket,
			Region:          cfg.Blob.S3.Region,
			Endpoint:        cfg.Blob.S3.Endpoint,
			PathStyle:       cfg.Blob.S3.PathStyle,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
		},
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open archive store: %w", err)
	}
	svc, err := core.NewService(ctx, store,
		core.WithLogger(log),
		core.WithStockPolicy(policy),
		core.WithMetricsRecorder(core.NewPrometheusRecorder(reg)),
		core.WithBlobStore(archive),
		core.WithLetterhead(permit.Letterhead{School: cfg.SchoolName, Unit: cfg.UnitName}),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, cleanup, err := buildService(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewHandler(svc, log, reg).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("storage", cfg.Storage.Driver).Str("blob", cfg.Blob.Driver).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
