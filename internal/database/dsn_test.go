package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "fleetgrid",
		Password: "secret",
		Name:     "fleetgrid",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=fleetgrid dbname=fleetgrid password=secret sslmode=disable", dsn)
}

func TestBuildPostgresDSNDefaultsAndOverrides(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:    "fleetgrid",
		Name:    "fleetgrid",
		Options: map[string]string{"sslmode": "require"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=require")

	_, err = buildPostgresDSN(Config{Name: "fleetgrid"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "fleetgrid",
		Password: "secret",
		Name:     "fleetgrid",
	})
	require.NoError(t, err)
	require.Equal(t, "fleetgrid:secret@tcp(127.0.0.1:3306)/fleetgrid?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{User: "fleetgrid"})
	require.Error(t, err)
}

func TestDSNOverrideWinsOutright(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://u@h/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u@h/db", dsn)
}
