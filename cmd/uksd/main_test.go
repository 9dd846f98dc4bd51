package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"uksledger/internal/config"
	"uksledger/pkg/domain"
)

func TestCLIBadFlag(t *testing.T) {
	var stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-nope"}, &bytes.Buffer{}, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestCLIInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uks.yaml")
	if err := os.WriteFile(path, []byte("stock_policy: lenient\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-config", path}, &bytes.Buffer{}, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid config") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestServeStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage:     config.StorageConfig{Driver: "memory"},
		Blob:        config.BlobConfig{Driver: "fs", FSRoot: filepath.Join(dir, "blobs")},
		StockPolicy: "reject",
		HTTP:        config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := serve(ctx, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestBuildServiceUsesConfiguredBackends(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage:     config.StorageConfig{Driver: "file", FilePath: filepath.Join(dir, "uks_db.json")},
		Blob:        config.BlobConfig{Driver: "memory"},
		StockPolicy: "permissive",
		SchoolName:  "SMA NEGERI 1",
	}
	svc, cleanup, err := buildService(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	defer cleanup()
	if svc.Store().Driver() != domain.StorageFile {
		t.Fatalf("unexpected driver %s", svc.Store().Driver())
	}
	if _, err := svc.ArchiveBackup(context.Background()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	cfg.StockPolicy = "bogus"
	if _, _, err := buildService(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected stock policy error")
	}
}
