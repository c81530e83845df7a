package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("WORKER_CONCURRENCY", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected DB_HOST override, got %q", cfg.Database.Host)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected 10s shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Review.DefaultDurationDays != 13 {
		t.Errorf("expected 13 review days, got %d", cfg.Review.DefaultDurationDays)
	}
	if !cfg.Export.Compress {
		t.Error("expected archive compression on by default")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
