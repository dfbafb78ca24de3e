package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Portfolio backend.
type Config struct {
	Server       ServerConfig      `mapstructure:"server"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Auth         AuthConfig        `mapstructure:"auth"`
	Email        EmailConfig       `mapstructure:"email"`
	Invitations  InvitationConfig  `mapstructure:"invitations"`
	EmailChanges EmailChangeConfig `mapstructure:"email_changes"`
	Plans        []PlanConfig      `mapstructure:"plans"`
	Maintenance  MaintenanceConfig `mapstructure:"maintenance"`
	Bootstrap    BootstrapConfig   `mapstructure:"bootstrap"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Options  string `mapstructure:"options"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT   JWTSettings       `mapstructure:"jwt"`
	Local LocalAuthSettings `mapstructure:"local"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// LocalAuthSettings defines the failed-authentication lockout policy.
type LocalAuthSettings struct {
	LockoutThreshold int `mapstructure:"lockout_threshold"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// InvitationConfig controls offer links and lifetimes.
type InvitationConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Expiry      time.Duration `mapstructure:"expiry"`
	TokenLength int           `mapstructure:"token_length"`
}

// EmailChangeConfig controls the review workflow.
type EmailChangeConfig struct {
	ReviewWindow time.Duration `mapstructure:"review_window"`
}

// PlanConfig declares a billing plan and its member ceiling.
type PlanConfig struct {
	Name       string `mapstructure:"name"`
	Segment    string `mapstructure:"segment"`
	MaxMembers int    `mapstructure:"max_members"`
}

// MaintenanceConfig tunes the background cleanup jobs.
type MaintenanceConfig struct {
	AuditRetentionDays  int    `mapstructure:"audit_retention_days"`
	InvitationSweepCron string `mapstructure:"invitation_sweep_cron"`
	EmailChangeCron     string `mapstructure:"email_change_cron"`
	AuditCleanupCron    string `mapstructure:"audit_cleanup_cron"`
}

// BootstrapConfig seeds the first super admin account on an empty database.
type BootstrapConfig struct {
	RootEmail    string `mapstructure:"root_email"`
	RootPassword string `mapstructure:"root_password"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/portfolio.sqlite")

	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.local.lockout_threshold", 5)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("invitations.base_url", "http://localhost:8000")
	v.SetDefault("invitations.expiry", "168h") // 7 days
	v.SetDefault("invitations.token_length", 32)

	v.SetDefault("email_changes.review_window", "720h") // 30 days

	v.SetDefault("maintenance.audit_retention_days", 365)
	v.SetDefault("maintenance.invitation_sweep_cron", "@hourly")
	v.SetDefault("maintenance.email_change_cron", "@daily")
	v.SetDefault("maintenance.audit_cleanup_cron", "@daily")

	v.SetDefault("bootstrap.root_email", "")
	v.SetDefault("bootstrap.root_password", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
