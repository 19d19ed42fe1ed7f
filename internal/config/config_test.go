package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("INCIDENT_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "Incident API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 30*24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 5*time.Minute, cfg.DedupeTTL)
	require.Equal(t, StorageNone, cfg.StorageProvider)
	require.Equal(t, 10, cfg.AttachmentMaxMB)
	require.Equal(t, "incident.reports", cfg.NATSSubject)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("INCIDENT_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownStorageProvider(t *testing.T) {
	t.Setenv("INCIDENT_JWT_SECRET", "test-secret")
	t.Setenv("INCIDENT_STORAGE_PROVIDER", "ftp")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("INCIDENT_JWT_SECRET", "test-secret")
	t.Setenv("INCIDENT_JWT_TTL", "1h")
	t.Setenv("INCIDENT_DATABASE_DRIVER", "SQLite")
	t.Setenv("INCIDENT_APP_PORT", ":9090")
	t.Setenv("INCIDENT_STORAGE_PROVIDER", "r2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, StorageR2, cfg.StorageProvider)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("INCIDENT_JWT_SECRET", "test-secret")
	t.Setenv("INCIDENT_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
