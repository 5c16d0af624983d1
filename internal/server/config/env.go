package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "ACCOUNTKEEPER_"

// parseEnv overlays values from the environment. Secrets are expected to
// arrive this way in production.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("HTTP_ADDR", &cfg.EndpointAddrHTTP)
	str("DATABASE_DSN", &cfg.DatabaseDSN)
	str("ACCESS_TOKEN_SECRET", &cfg.AccessTokenSecret)
	str("REFRESH_TOKEN_SECRET", &cfg.RefreshTokenSecret)
	str("EMAIL_VERIFY_TOKEN_SECRET", &cfg.EmailVerifyTokenSecret)
	str("FORGOT_PASSWORD_TOKEN_SECRET", &cfg.ForgotPasswordTokenSecret)
	str("SMTP_HOST", &cfg.SMTP.Host)
	str("SMTP_USER", &cfg.SMTP.User)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("MAIL_FROM", &cfg.SMTP.From)
	str("PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	str("LOG_LEVEL", &cfg.LogLevel)

	for name, dst := range map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":          &cfg.AccessTokenTTL,
		"REFRESH_TOKEN_TTL":         &cfg.RefreshTokenTTL,
		"EMAIL_VERIFY_TOKEN_TTL":    &cfg.EmailVerifyTokenTTL,
		"FORGOT_PASSWORD_TOKEN_TTL": &cfg.ForgotPasswordTokenTTL,
	} {
		if err := dur(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSMTP_PORT: %w", EnvPrefix, err)
		}
		cfg.SMTP.Port = port
	}
	if v, ok := lookup(EnvPrefix + "MAIL_DRY_RUN"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMAIL_DRY_RUN: %w", EnvPrefix, err)
		}
		cfg.MailDryRun = b
	}
	return nil
}
