package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashack/portfolio-sub000/internal/auth"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/portfolio.sqlite", cfg.Database.Path)

	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 5, cfg.Auth.Local.LockoutThreshold)

	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 587, cfg.Email.SMTP.Port)
	require.Equal(t, 10*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "http://localhost:8000", cfg.Invitations.BaseURL)
	require.Equal(t, 7*24*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 32, cfg.Invitations.TokenLength)

	require.Equal(t, 30*24*time.Hour, cfg.EmailChanges.ReviewWindow)

	require.Equal(t, 365, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@hourly", cfg.Maintenance.InvitationSweepCron)
	require.Equal(t, "@daily", cfg.Maintenance.EmailChangeCron)
	require.Equal(t, "@daily", cfg.Maintenance.AuditCleanupCron)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_SERVER_PORT", "9090")
	t.Setenv("PORTFOLIO_DATABASE_DRIVER", "postgres")
	t.Setenv("PORTFOLIO_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: "issuer",
				TTL:    30 * time.Minute,
			},
			Local: LocalAuthSettings{LockoutThreshold: 7},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, "secret", jwtCfg.Secret)
	require.Equal(t, "issuer", jwtCfg.Issuer)
	require.Equal(t, 30*time.Minute, jwtCfg.AccessTokenTTL)
	require.Equal(t, 7, cfg.Auth.FailedAuthLimit())

	// Zero values fall back to service defaults.
	empty := AuthConfig{}
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, defaultLockoutThreshold, empty.FailedAuthLimit())
}

func TestEmailConfigSMTPSettings(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "smtp-user",
			Password: "smtp-pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  15 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.Equal(t, 15*time.Second, settings.Timeout)
}
