package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// Clear any environment variables to test defaults
	env := []string{
		"APP_ENV", "APP_HTTP_ADDR", "METRICS_ADDR", "STORE_TYPE", "DB_DSN",
		"KV_TYPE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"CACHE_TTL_SECONDS", "CLICK_RETENTION_DAYS", "GEOIP_DB_PATH",
		"BUCKET_SALT", "STRICT_RULES", "ADMIN_API_KEY", "RATE_LIMIT_PER_IP",
	}

	for _, key := range env {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify default values
	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected MetricsAddr=':9090', got '%s'", cfg.MetricsAddr)
	}
	if cfg.StoreType != "postgres" {
		t.Errorf("Expected StoreType='postgres', got '%s'", cfg.StoreType)
	}
	if cfg.KVType != "redis" {
		t.Errorf("Expected KVType='redis', got '%s'", cfg.KVType)
	}
	if cfg.CacheTTLSeconds != 10 {
		t.Errorf("Expected CacheTTLSeconds=10, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.ClickRetentionDays != 7 {
		t.Errorf("Expected ClickRetentionDays=7, got %d", cfg.ClickRetentionDays)
	}
	if cfg.StrictRules {
		t.Error("Expected StrictRules=false by default")
	}
	if cfg.AdminAPIKey != "admin-123" {
		t.Errorf("Expected AdminAPIKey='admin-123', got '%s'", cfg.AdminAPIKey)
	}
	if cfg.RateLimitPerIP != 300 {
		t.Errorf("Expected RateLimitPerIP=300, got %d", cfg.RateLimitPerIP)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	os.Setenv("APP_ENV", "test")
	os.Setenv("APP_HTTP_ADDR", ":9999")
	os.Setenv("STORE_TYPE", "memory")
	os.Setenv("KV_TYPE", "memory")
	os.Setenv("CACHE_TTL_SECONDS", "30")
	os.Setenv("CLICK_RETENTION_DAYS", "14")
	os.Setenv("STRICT_RULES", "true")
	os.Setenv("BUCKET_SALT", "pepper")
	os.Setenv("ADMIN_API_KEY", "custom-key")

	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("APP_HTTP_ADDR")
		os.Unsetenv("STORE_TYPE")
		os.Unsetenv("KV_TYPE")
		os.Unsetenv("CACHE_TTL_SECONDS")
		os.Unsetenv("CLICK_RETENTION_DAYS")
		os.Unsetenv("STRICT_RULES")
		os.Unsetenv("BUCKET_SALT")
		os.Unsetenv("ADMIN_API_KEY")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "test" {
		t.Errorf("Expected AppEnv='test', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("Expected HTTPAddr=':9999', got '%s'", cfg.HTTPAddr)
	}
	if cfg.StoreType != "memory" {
		t.Errorf("Expected StoreType='memory', got '%s'", cfg.StoreType)
	}
	if cfg.KVType != "memory" {
		t.Errorf("Expected KVType='memory', got '%s'", cfg.KVType)
	}
	if cfg.CacheTTLSeconds != 30 {
		t.Errorf("Expected CacheTTLSeconds=30, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.ClickRetentionDays != 14 {
		t.Errorf("Expected ClickRetentionDays=14, got %d", cfg.ClickRetentionDays)
	}
	if !cfg.StrictRules {
		t.Error("Expected StrictRules=true")
	}
	if cfg.BucketSalt != "pepper" {
		t.Errorf("Expected BucketSalt='pepper', got '%s'", cfg.BucketSalt)
	}
	if cfg.AdminAPIKey != "custom-key" {
		t.Errorf("Expected AdminAPIKey='custom-key', got '%s'", cfg.AdminAPIKey)
	}
}

func TestLoad_MissingEnvFileIsAcceptable(t *testing.T) {
	// Even if .env file doesn't exist, Load should succeed with defaults
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not fail when .env is missing: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{CacheTTLSeconds: 10, ClickRetentionDays: 7}
	if cfg.CacheTTL() != 10*time.Second {
		t.Errorf("CacheTTL() = %v, want 10s", cfg.CacheTTL())
	}
	if cfg.ClickRetention() != 7*24*time.Hour {
		t.Errorf("ClickRetention() = %v, want 168h", cfg.ClickRetention())
	}
}

func validConfig() *Config {
	return &Config{
		AppEnv:             "dev",
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		StoreType:          "memory",
		KVType:             "memory",
		CacheTTLSeconds:    10,
		ClickRetentionDays: 7,
		AdminAPIKey:        "admin-123",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad store type", mutate: func(c *Config) { c.StoreType = "sqlite" }, wantField: "STORE_TYPE"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "" }, wantField: "DB_DSN"},
		{name: "bad kv type", mutate: func(c *Config) { c.KVType = "memcached" }, wantField: "KV_TYPE"},
		{name: "redis without addr", mutate: func(c *Config) { c.KVType = "redis"; c.RedisAddr = "" }, wantField: "REDIS_ADDR"},
		{name: "empty http addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantField: "APP_HTTP_ADDR"},
		{name: "empty metrics addr", mutate: func(c *Config) { c.MetricsAddr = "" }, wantField: "METRICS_ADDR"},
		{name: "zero cache ttl", mutate: func(c *Config) { c.CacheTTLSeconds = 0 }, wantField: "CACHE_TTL_SECONDS"},
		{name: "zero retention", mutate: func(c *Config) { c.ClickRetentionDays = 0 }, wantField: "CLICK_RETENTION_DAYS"},
		{name: "default admin key in prod", mutate: func(c *Config) { c.AppEnv = "prod" }, wantField: "ADMIN_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			ve, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Validate() field = %s, want %s", ve.Field, tt.wantField)
			}
		})
	}
}
