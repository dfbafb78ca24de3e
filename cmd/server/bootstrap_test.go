package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashack/portfolio-sub000/internal/app"
)

func TestConvertDatabaseConfigSQLiteDefaults(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Path = " ./data/portfolio.sqlite "

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/portfolio.sqlite", dbCfg.Path)
}

func TestConvertDatabaseConfigPostgres(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     "db.example.com",
		Port:     6543,
		Database: "portfolio",
		Username: "svc",
		Password: "secret",
		Options:  "sslmode=require, search_path=public",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.example.com", dbCfg.Host)
	require.Equal(t, 6543, dbCfg.Port)
	require.Equal(t, "portfolio", dbCfg.Name)
	require.Equal(t, "svc", dbCfg.User)
	require.Equal(t, "secret", dbCfg.Password)
	require.Equal(t, map[string]string{
		"sslmode":     "require",
		"search_path": "public",
	}, dbCfg.Options)
}

func TestConvertDatabaseConfigMySQL(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "mariadb"
	cfg.Database.MySQL = app.DBAuthConfig{
		Host:     "mysql.internal",
		Port:     3307,
		Database: "portfolio",
		Username: "svc",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "mysql.internal", dbCfg.Host)
	require.Equal(t, 3307, dbCfg.Port)
	require.Nil(t, dbCfg.Options)
}

func TestParseDSNOptions(t *testing.T) {
	require.Nil(t, parseDSNOptions(""))
	require.Nil(t, parseDSNOptions(" , , "))
	require.Equal(t, map[string]string{"tls": "skip-verify"}, parseDSNOptions("tls=skip-verify"))
}
