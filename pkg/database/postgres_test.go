package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/arcade/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	cfg := &config.Config{}

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error when DATABASE_URL is empty")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "postgres://%zz"}}

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error for an unparsable DATABASE_URL")
	}
}

func TestHealthCheck(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	status := db.HealthCheck(ctx)
	if !status.Healthy {
		t.Errorf("Expected healthy database, got error %q", status.Error)
	}
}
