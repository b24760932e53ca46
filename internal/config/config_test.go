package config

import (
	"os"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"SERVER_PORT":             "8080",
		"SERVER_HOST":             "0.0.0.0",
		"SERVER_BASE_URL":         "http://localhost:8080",
		"SERVER_READ_TIMEOUT":     "10s",
		"SERVER_WRITE_TIMEOUT":    "10s",
		"SERVER_IDLE_TIMEOUT":     "120s",
		"SERVER_SHUTDOWN_TIMEOUT": "30s",

		"DB_DRIVER":        "postgres",
		"DB_HOST":          "localhost",
		"DB_PORT":          "5432",
		"DB_USER":          "testuser",
		"DB_PASSWORD":      "testpass",
		"DB_NAME":          "testdb",
		"DB_SSLMODE":       "disable",
		"DB_MAX_CONNS":     "25",
		"DB_MIN_CONNS":     "5",
		"DB_QUERY_TIMEOUT": "3s",

		"REDIS_ENABLED": "false",

		"APP_ENV":   "test",
		"LOG_LEVEL": "debug",
	}
}

func TestLoad_Success(t *testing.T) {
	for key, value := range baseEnv() {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("Server.BaseURL = %s, want http://localhost:8080", cfg.Server.BaseURL)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.Database.QueryTimeout != 3*time.Second {
		t.Errorf("Database.QueryTimeout = %v, want 3s", cfg.Database.QueryTimeout)
	}

	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false")
	}

	if cfg.App.Environment != "test" {
		t.Errorf("App.Environment = %s, want test", cfg.App.Environment)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("App.LogLevel = %s, want debug", cfg.App.LogLevel)
	}
}

func TestLoad_SQLiteDriver_SkipsPostgresValidation(t *testing.T) {
	os.Clearenv()

	envVars := baseEnv()
	envVars["DB_DRIVER"] = "sqlite"
	envVars["DB_SQLITE_PATH"] = "/tmp/links.db"
	delete(envVars, "DB_HOST")
	delete(envVars, "DB_USER")
	delete(envVars, "DB_NAME")

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.SQLitePath != "/tmp/links.db" {
		t.Errorf("Database.SQLitePath = %s, want /tmp/links.db", cfg.Database.SQLitePath)
	}
}

func TestLoad_MissingRequiredVariable(t *testing.T) {
	tests := []struct {
		name       string
		skipEnvVar string
	}{
		{"missing SERVER_PORT", "SERVER_PORT"},
		{"missing DB_HOST", "DB_HOST"},
		{"missing DB_NAME", "DB_NAME"},
		{"missing APP_ENV", "APP_ENV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			envVars := baseEnv()
			delete(envVars, tt.skipEnvVar)

			for key, value := range envVars {
				_ = os.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Errorf("Load() should fail when %s is missing", tt.skipEnvVar)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid duration", "SERVER_READ_TIMEOUT", "invalid"},
		{"invalid int", "DB_MAX_CONNS", "not-a-number"},
		{"invalid bool", "REDIS_ENABLED", "maybe"},
		{"invalid driver", "DB_DRIVER", "mysql"},
		{"invalid ssl mode", "DB_SSLMODE", "sometimes"},
		{"invalid environment", "APP_ENV", "prod"},
		{"invalid log level", "LOG_LEVEL", "trace"},
		{"zero query timeout", "DB_QUERY_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envVars := baseEnv()
			envVars[tt.envVar] = tt.value

			for key, value := range envVars {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Errorf("Load() should fail when %s = %s", tt.envVar, tt.value)
			}
		})
	}
}

func TestLoad_RedisEnabled(t *testing.T) {
	envVars := baseEnv()
	envVars["REDIS_ENABLED"] = "true"
	envVars["REDIS_ADDR"] = "redis:6379"
	envVars["RATE_LIMIT_CREATE_MAX"] = "20"
	envVars["RATE_LIMIT_REDIRECT_WINDOW"] = "5m"

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Fatal("Redis.Enabled = false, want true")
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %s, want redis:6379", cfg.Redis.Addr)
	}
	if cfg.Redis.CreateLimit != 20 {
		t.Errorf("Redis.CreateLimit = %d, want 20", cfg.Redis.CreateLimit)
	}
	if cfg.Redis.CreateWindow != 15*time.Minute {
		t.Errorf("Redis.CreateWindow = %v, want 15m (default)", cfg.Redis.CreateWindow)
	}
	if cfg.Redis.RedirectLimit != 100 {
		t.Errorf("Redis.RedirectLimit = %d, want 100 (default)", cfg.Redis.RedirectLimit)
	}
	if cfg.Redis.RedirectWindow != 5*time.Minute {
		t.Errorf("Redis.RedirectWindow = %v, want 5m", cfg.Redis.RedirectWindow)
	}
}

func TestRedisConfig_Validate_DisabledSkipsChecks(t *testing.T) {
	cfg := RedisConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on disabled redis failed: %v", err)
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "testhost",
		Port:     "5432",
		User:     "testuser",
		Password: "testpass",
		Name:     "testdb",
		SSLMode:  "disable",
	}

	expected := "host=testhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := db.ConnectionString()

	if got != expected {
		t.Errorf("ConnectionString() = %s, want %s", got, expected)
	}
}
