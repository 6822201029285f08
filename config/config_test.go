package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "fraudshield", cfg.Database.Database)
				assert.Equal(t, "fraudshield", cfg.Auth.Issuer)
				assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, 3*time.Second, cfg.Actions.ErrorClearDelay)
				assert.Equal(t, 1000, cfg.Cache.PlanCacheSize)
				assert.Equal(t, 5*time.Minute, cfg.Cache.PlanCacheTTL)
				assert.Equal(t, 64, cfg.Actions.MaxKeys)
				assert.Equal(t, 30*time.Minute, cfg.Actions.SessionIdleTTL)
				assert.Equal(t, time.Minute, cfg.Cache.CleanupInterval)
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"SERVER_PORT": "9000",
				"DB_HOST":     "prod-db.example.com",
				"DB_PORT":     "5433",
				"JWT_SECRET":  "s3cret",
				"JWT_ISSUER":  "fraudshield-prod",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "prod-db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
				assert.Equal(t, "fraudshield-prod", cfg.Auth.Issuer)
			},
		},
		{
			name: "custom timeouts, pool and cache settings",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT":      "60s",
				"SERVER_WRITE_TIMEOUT":     "90s",
				"DB_MAX_OPEN_CONNS":        "50",
				"DB_MAX_IDLE_CONNS":        "10",
				"ACTION_ERROR_CLEAR_DELAY": "5s",
				"PLAN_CACHE_SIZE":          "50",
				"PLAN_CACHE_TTL":           "30s",
				"ACTION_MAX_KEYS":          "8",
				"ACTION_SESSION_IDLE_TTL":  "10m",
				"CACHE_CLEANUP_INTERVAL":   "15s",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 10, cfg.Database.MaxIdleConns)
				assert.Equal(t, 5*time.Second, cfg.Actions.ErrorClearDelay)
				assert.Equal(t, 50, cfg.Cache.PlanCacheSize)
				assert.Equal(t, 30*time.Second, cfg.Cache.PlanCacheTTL)
				assert.Equal(t, 8, cfg.Actions.MaxKeys)
				assert.Equal(t, 10*time.Minute, cfg.Actions.SessionIdleTTL)
				assert.Equal(t, 15*time.Second, cfg.Cache.CleanupInterval)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "text",
				"METRICS_ENABLED": "false",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "text", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "allowed origins list",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://app.example.com, https://admin.example.com,,",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "DATABASE_URL takes precedence",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://app:pw@db.internal:6543/shield?sslmode=require",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://app:pw@db.internal:6543/shield?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=shield", cfg.Database.LogString())
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "production without JWT secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "non-positive clear delay",
			envVars: map[string]string{
				"ACTION_ERROR_CLEAR_DELAY": "0s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Actions:       ActionsConfig{ErrorClearDelay: 3 * time.Second},
		Cache:         CacheConfig{PlanCacheSize: 10},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid development config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "missing database name",
			mutate:  func(c *Config) { c.Database.Database = "" },
			wantErr: true,
			errMsg:  "database name is required",
		},
		{
			name:    "production without secret",
			mutate:  func(c *Config) { c.Environment = "prod" },
			wantErr: true,
			errMsg:  "JWT secret is required",
		},
		{
			name:    "zero clear delay",
			mutate:  func(c *Config) { c.Actions.ErrorClearDelay = 0 },
			wantErr: true,
			errMsg:  "clear delay must be positive",
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.Cache.PlanCacheSize = 0 },
			wantErr: true,
			errMsg:  "plan cache size must be positive",
		},
		{
			name:    "negative max keys",
			mutate:  func(c *Config) { c.Actions.MaxKeys = -1 },
			wantErr: true,
			errMsg:  "action max keys must not be negative",
		},
		{
			name:    "negative session idle TTL",
			mutate:  func(c *Config) { c.Actions.SessionIdleTTL = -time.Second },
			wantErr: true,
			errMsg:  "idle TTL must not be negative",
		},
		{
			name:    "negative cleanup interval",
			mutate:  func(c *Config) { c.Cache.CleanupInterval = -time.Second },
			wantErr: true,
			errMsg:  "cleanup interval must not be negative",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"production", "production", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsDevelopment())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"milliseconds", "3000ms", time.Second, 3 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"a"}, getEnvAsList("TEST_LIST", []string{"a"}))

	os.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"a"}, getEnvAsList("TEST_LIST", []string{"a"}))

	os.Setenv("TEST_LIST", "x,y")
	assert.Equal(t, []string{"x", "y"}, getEnvAsList("TEST_LIST", nil))
}
