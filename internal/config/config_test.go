package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("BILL_OVERDUE_POLICY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.StoreBackend)
	}
	if cfg.BillOverduePolicy != OverdueView {
		t.Errorf("expected view overdue policy, got %q", cfg.BillOverduePolicy)
	}
	if cfg.RecordStoreTimeout != 10*time.Second {
		t.Errorf("expected 10s store timeout, got %s", cfg.RecordStoreTimeout)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_RemoteRequiresURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "remote")
	t.Setenv("RECORD_STORE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when RECORD_STORE_URL is missing")
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Remote")
	t.Setenv("RECORD_STORE_URL", "https://records.example.test/api")
	t.Setenv("RECORD_STORE_TIMEOUT", "3s")
	t.Setenv("BILL_OVERDUE_POLICY", "persist")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreBackend != BackendRemote {
		t.Errorf("expected remote backend, got %q", cfg.StoreBackend)
	}
	if cfg.RecordStoreTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.RecordStoreTimeout)
	}
	if cfg.BillOverduePolicy != OverduePersist {
		t.Errorf("expected persist policy, got %q", cfg.BillOverduePolicy)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StoreBackend:       BackendMemory,
			BillOverduePolicy:  OverdueView,
			RecordStoreTimeout: time.Second,
			OTelSampleRate:     1,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	c := base()
	c.StoreBackend = "mongo"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	c = base()
	c.BillOverduePolicy = "sometimes"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown overdue policy")
	}

	c = base()
	c.StoreBackend = BackendRemote
	c.RecordStoreURL = "http://store"
	c.Env = "production"
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing secret in production")
	}

	c = base()
	c.OTelSampleRate = 2
	if err := c.Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
