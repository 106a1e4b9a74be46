package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.SQLiteDBPath != "./data/bendahara.db" {
		t.Errorf("SQLiteDBPath = %q", cfg.SQLiteDBPath)
	}
	if cfg.AMQPExchange != "bendahara" {
		t.Errorf("AMQPExchange = %q", cfg.AMQPExchange)
	}
	if cfg.AMQPQueue != "export_transactions" {
		t.Errorf("AMQPQueue = %q", cfg.AMQPQueue)
	}
	if cfg.ReconcileInterval != 15*time.Minute {
		t.Errorf("ReconcileInterval = %v", cfg.ReconcileInterval)
	}
	if cfg.ChartWindowDays != 30 {
		t.Errorf("ChartWindowDays = %d", cfg.ChartWindowDays)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECONCILE_INTERVAL", "5m")
	t.Setenv("CHART_WINDOW_DAYS", "90")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Errorf("ReconcileInterval = %v, want 5m", cfg.ReconcileInterval)
	}
	if cfg.ChartWindowDays != 90 {
		t.Errorf("ChartWindowDays = %d, want 90", cfg.ChartWindowDays)
	}
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg := Load()
		cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "test.db")
		return cfg
	}

	t.Run("accepts defaults", func(t *testing.T) {
		if err := valid(t).Validate(); err != nil {
			t.Fatalf("Validate() = %v", err)
		}
	})

	t.Run("rejects bad port", func(t *testing.T) {
		cfg := valid(t)
		cfg.Port = "not-a-port"
		mustFail(t, cfg, "invalid port")
	})

	t.Run("rejects bad AMQP scheme", func(t *testing.T) {
		cfg := valid(t)
		cfg.AMQPURL = "http://localhost:5672/"
		mustFail(t, cfg, "AMQP URL scheme")
	})

	t.Run("requires credentials with spreadsheet", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		cfg := valid(t)
		cfg.GoogleSpreadsheetID = "sheet-id"
		cfg.GoogleServiceAccountFile = ""
		cfg.GoogleServiceAccountJSON = ""
		mustFail(t, cfg, "GOOGLE_SERVICE_ACCOUNT")
	})

	t.Run("rejects tiny reconcile interval", func(t *testing.T) {
		cfg := valid(t)
		cfg.ReconcileInterval = time.Second
		mustFail(t, cfg, "reconcile interval")
	})

	t.Run("rejects huge chart window", func(t *testing.T) {
		cfg := valid(t)
		cfg.ChartWindowDays = 1000
		mustFail(t, cfg, "chart window")
	})
}

func mustFail(t *testing.T, cfg *Config, wantSubstring string) {
	t.Helper()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), wantSubstring) {
		t.Errorf("error %q does not mention %q", err, wantSubstring)
	}
}
