// Package config handles configuration for the AccountKeeper server:
// defaults, an optional JSON or YAML file, environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// PasswordPolicy sets the minimum character-class counts a password must meet.
type PasswordPolicy struct {
	MinLength    int
	MinLowercase int
	MinUppercase int
	MinNumbers   int
	MinSymbols   int
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Config holds runtime settings for the AccountKeeper server.
//
// Every token kind has its own HMAC secret and lifetime. An empty
// DatabaseDSN selects in-memory storage, which is meant for local runs only.
type Config struct {
	EndpointAddrHTTP string
	DatabaseDSN      string

	AccessTokenSecret         string
	RefreshTokenSecret        string
	EmailVerifyTokenSecret    string
	ForgotPasswordTokenSecret string

	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	EmailVerifyTokenTTL    time.Duration
	ForgotPasswordTokenTTL time.Duration

	PasswordPolicy PasswordPolicy

	SMTP          SMTPConfig
	MailDryRun    bool
	PublicBaseURL string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are not suitable for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":4000"
	c.DatabaseDSN = ""
	c.AccessTokenSecret = "dev-access-token-secret"
	c.RefreshTokenSecret = "dev-refresh-token-secret"
	c.EmailVerifyTokenSecret = "dev-email-verify-token-secret"
	c.ForgotPasswordTokenSecret = "dev-forgot-password-token-secret"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 100 * 24 * time.Hour
	c.EmailVerifyTokenTTL = 7 * 24 * time.Hour
	c.ForgotPasswordTokenTTL = 24 * time.Hour
	c.PasswordPolicy = PasswordPolicy{MinLength: 6, MinLowercase: 1, MinUppercase: 1, MinNumbers: 1, MinSymbols: 1}
	c.SMTP = SMTPConfig{Host: "localhost", Port: 1025, From: "no-reply@accountkeeper.local"}
	c.MailDryRun = true
	c.PublicBaseURL = "http://localhost:4000"
	c.LogLevel = "info"
}

// Validate rejects configurations the token service cannot run with.
func (c *Config) Validate() error {
	secrets := map[string]string{
		"access token secret":          c.AccessTokenSecret,
		"refresh token secret":         c.RefreshTokenSecret,
		"email verify token secret":    c.EmailVerifyTokenSecret,
		"forgot password token secret": c.ForgotPasswordTokenSecret,
	}
	seen := make(map[string]string, len(secrets))
	for name, v := range secrets {
		if v == "" {
			return fmt.Errorf("%s is empty", name)
		}
		if other, ok := seen[v]; ok {
			return fmt.Errorf("%s must differ from %s", name, other)
		}
		seen[v] = name
	}

	ttls := map[string]time.Duration{
		"access token ttl":          c.AccessTokenTTL,
		"refresh token ttl":         c.RefreshTokenTTL,
		"email verify token ttl":    c.EmailVerifyTokenTTL,
		"forgot password token ttl": c.ForgotPasswordTokenTTL,
	}
	for name, v := range ttls {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.EndpointAddrHTTP == "" {
		return errors.New("http address is empty")
	}
	return nil
}

// Load builds a Config from defaults, then the file named by -c/-config,
// then environment variables, then flags.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
// It panics on invalid configuration, since the server cannot start anyway.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		panic(err)
	}
	return cfg
}
