package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/app"
)

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "SQLite"
	cfg.Database.Path = " ./data/fleetgrid.sqlite "

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/fleetgrid.sqlite", dbCfg.Path)

	cfg = &app.Config{}
	cfg.Database.Driver = "postgresql"
	cfg.Database.Postgres.Host = "db.internal"
	cfg.Database.Postgres.Port = 5432
	cfg.Database.Postgres.Database = "fleetgrid"
	cfg.Database.Postgres.Username = "fleetgrid"

	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
}

func TestLoadApplicationConfigRejectsMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/definitely/not/here")
	require.Error(t, err)

	cfg, err := loadApplicationConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
}
