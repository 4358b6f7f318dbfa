package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, StorageMinio, cfg.Storage.Driver)
	assert.Equal(t, ByteSize(10_000_000), cfg.MaxUploadSize)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/meta.db")
	t.Setenv("MAX_UPLOAD_SIZE", "2 MiB")
	t.Setenv("STORAGE_DRIVER", "fs")
	t.Setenv("STORAGE_ROOT", "/var/lib/webapp")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/meta.db", cfg.SQLitePath)
	assert.Equal(t, ByteSize(2<<20), cfg.MaxUploadSize)
	assert.Equal(t, StorageFS, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/webapp", cfg.Storage.Root)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "db driver", key: "DB_DRIVER", value: "mysql"},
		{name: "storage driver", key: "STORAGE_DRIVER", value: "gcs"},
		{name: "log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "log format", key: "LOG_FORMAT", value: "xml"},
		{name: "upload size", key: "MAX_UPLOAD_SIZE", value: "lots"},
		{name: "zero upload size", key: "MAX_UPLOAD_SIZE", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	logger.Debug("file stored", "key", "abc.txt")

	assert.Contains(t, buf.String(), "file stored")
	assert.Contains(t, buf.String(), "abc.txt")
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "10 MB", ByteSize(10_000_000).String())
}
