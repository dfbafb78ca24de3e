package app

import (
	"github.com/ashack/portfolio-sub000/internal/auth"
)

const defaultLockoutThreshold = 5

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// FailedAuthLimit returns the lockout threshold applied to failed authentication reports.
func (c AuthConfig) FailedAuthLimit() int {
	if c.Local.LockoutThreshold <= 0 {
		return defaultLockoutThreshold
	}
	return c.Local.LockoutThreshold
}
