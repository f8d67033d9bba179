package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"SWIM_APP_NAME",
	"SWIM_APP_ENV",
	"SWIM_APP_PORT",
	"SWIM_DATABASE_DRIVER",
	"SWIM_DATABASE_HOST",
	"SWIM_DATABASE_PORT",
	"SWIM_DATABASE_PASSWORD",
	"SWIM_DATABASE_SSLMODE",
	"SWIM_DATABASE_MAX_OPEN_CONNS",
	"SWIM_DATABASE_MAX_IDLE_CONNS",
	"SWIM_FILTER_SNAPSHOT_BACKEND",
	"SWIM_FILTER_MAX_SESSIONS",
	"SWIM_QUERY_IN_LIMIT",
	"SWIM_QUERY_CACHE_TTL",
	"SWIM_HTTP_CORS_ALLOW_ORIGINS",
	"SWIM_TELEMETRY_SAMPLING_RATIO",
	"SWIM_TELEMETRY_METRICS_ENABLED",
	"SWIM_TELEMETRY_METRICS_EXPORT_INTERVAL",
	"SWIM_TELEMETRY_LOGS_ENABLED",
}

// clearEnv unsets every key for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "swimteam-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, "swimteam.db", cfg.Database.Path)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, SnapshotBackendMemory, cfg.Filter.SnapshotBackend)
		assert.Equal(t, "appFilterState-v1", cfg.Filter.StorageKey)
		assert.Equal(t, 24*time.Hour, cfg.Filter.SessionIdleTTL)
		assert.Equal(t, 10000, cfg.Filter.MaxSessions)
		assert.Equal(t, 30, cfg.Query.InLimit)
		assert.Equal(t, time.Duration(0), cfg.Query.CacheTTL)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "X-Session-ID")
	})

	t.Run("loads values from environment variables with SWIM prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_APP_NAME", "test-app")
		t.Setenv("SWIM_APP_PORT", "9000")
		t.Setenv("SWIM_DATABASE_DRIVER", "postgres")
		t.Setenv("SWIM_DATABASE_HOST", "testdb.local")
		t.Setenv("SWIM_DATABASE_PORT", "5433")
		t.Setenv("SWIM_FILTER_SNAPSHOT_BACKEND", "redis")
		t.Setenv("SWIM_QUERY_IN_LIMIT", "10")
		t.Setenv("SWIM_QUERY_CACHE_TTL", "30s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, SnapshotBackendRedis, cfg.Filter.SnapshotBackend)
		assert.Equal(t, 10, cfg.Query.InLimit)
		assert.Equal(t, 30*time.Second, cfg.Query.CacheTTL)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown snapshot backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_FILTER_SNAPSHOT_BACKEND", "file")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "filter.snapshot_backend")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("SWIM_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("negative in limit is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_QUERY_IN_LIMIT", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query.in_limit")
	})

	t.Run("negative session cap is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_FILTER_MAX_SESSIONS", "-5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "filter.max_sessions")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_APP_ENV", "production")
		t.Setenv("SWIM_DATABASE_DRIVER", "postgres")
		t.Setenv("SWIM_DATABASE_PASSWORD", "secure-password")
		t.Setenv("SWIM_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SWIM_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SWIM_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("memory store is not allowed in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SWIM_DATABASE_DRIVER", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "memory")
	})

	t.Run("wildcard CORS origin is rejected in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SWIM_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverPostgres, Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite DSN is the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/swim.db"}
		assert.Equal(t, "/tmp/swim.db", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}

func TestLoad_Telemetry(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.False(t, cfg.Telemetry.MetricsEnabled)
		assert.False(t, cfg.Telemetry.LogsEnabled)
		assert.Equal(t, time.Minute, cfg.Telemetry.MetricsExportInterval)
	})

	t.Run("metrics and logs export from env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_TELEMETRY_METRICS_ENABLED", "true")
		t.Setenv("SWIM_TELEMETRY_METRICS_EXPORT_INTERVAL", "15s")
		t.Setenv("SWIM_TELEMETRY_LOGS_ENABLED", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.MetricsEnabled)
		assert.True(t, cfg.Telemetry.LogsEnabled)
		assert.Equal(t, 15*time.Second, cfg.Telemetry.MetricsExportInterval)
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SWIM_TELEMETRY_SAMPLING_RATIO", "1.5")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}
