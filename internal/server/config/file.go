package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the configuration. Zero values leave
// the corresponding Config field untouched.
type fileConfig struct {
	EndpointAddrHTTP          string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN               string         `json:"database_dsn" yaml:"database_dsn"`
	AccessTokenSecret         string         `json:"access_token_secret" yaml:"access_token_secret"`
	RefreshTokenSecret        string         `json:"refresh_token_secret" yaml:"refresh_token_secret"`
	EmailVerifyTokenSecret    string         `json:"email_verify_token_secret" yaml:"email_verify_token_secret"`
	ForgotPasswordTokenSecret string         `json:"forgot_password_token_secret" yaml:"forgot_password_token_secret"`
	AccessTokenTTL            timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL           timex.Duration `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	EmailVerifyTokenTTL       timex.Duration `json:"email_verify_token_ttl" yaml:"email_verify_token_ttl"`
	ForgotPasswordTokenTTL    timex.Duration `json:"forgot_password_token_ttl" yaml:"forgot_password_token_ttl"`

	PasswordPolicy *struct {
		MinLength    int `json:"min_length" yaml:"min_length"`
		MinLowercase int `json:"min_lowercase" yaml:"min_lowercase"`
		MinUppercase int `json:"min_uppercase" yaml:"min_uppercase"`
		MinNumbers   int `json:"min_numbers" yaml:"min_numbers"`
		MinSymbols   int `json:"min_symbols" yaml:"min_symbols"`
	} `json:"password_policy" yaml:"password_policy"`

	SMTP struct {
		Host     string `json:"host" yaml:"host"`
		Port     int    `json:"port" yaml:"port"`
		User     string `json:"user" yaml:"user"`
		Password string `json:"password" yaml:"password"`
		From     string `json:"from" yaml:"from"`
	} `json:"smtp" yaml:"smtp"`

	MailDryRun    *bool  `json:"mail_dry_run" yaml:"mail_dry_run"`
	PublicBaseURL string `json:"public_base_url" yaml:"public_base_url"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file given with -c/-config. The format follows the
// extension: .yaml/.yml for YAML, anything else is read as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.AccessTokenSecret, fc.AccessTokenSecret)
	setString(&cfg.RefreshTokenSecret, fc.RefreshTokenSecret)
	setString(&cfg.EmailVerifyTokenSecret, fc.EmailVerifyTokenSecret)
	setString(&cfg.ForgotPasswordTokenSecret, fc.ForgotPasswordTokenSecret)

	if fc.AccessTokenTTL.Duration != 0 {
		cfg.AccessTokenTTL = fc.AccessTokenTTL.Duration
	}
	if fc.RefreshTokenTTL.Duration != 0 {
		cfg.RefreshTokenTTL = fc.RefreshTokenTTL.Duration
	}
	if fc.EmailVerifyTokenTTL.Duration != 0 {
		cfg.EmailVerifyTokenTTL = fc.EmailVerifyTokenTTL.Duration
	}
	if fc.ForgotPasswordTokenTTL.Duration != 0 {
		cfg.ForgotPasswordTokenTTL = fc.ForgotPasswordTokenTTL.Duration
	}

	if p := fc.PasswordPolicy; p != nil {
		cfg.PasswordPolicy = PasswordPolicy{
			MinLength:    p.MinLength,
			MinLowercase: p.MinLowercase,
			MinUppercase: p.MinUppercase,
			MinNumbers:   p.MinNumbers,
			MinSymbols:   p.MinSymbols,
		}
	}

	setString(&cfg.SMTP.Host, fc.SMTP.Host)
	if fc.SMTP.Port != 0 {
		cfg.SMTP.Port = fc.SMTP.Port
	}
	setString(&cfg.SMTP.User, fc.SMTP.User)
	setString(&cfg.SMTP.Password, fc.SMTP.Password)
	setString(&cfg.SMTP.From, fc.SMTP.From)

	if fc.MailDryRun != nil {
		cfg.MailDryRun = *fc.MailDryRun
	}
	setString(&cfg.PublicBaseURL, fc.PublicBaseURL)
	setString(&cfg.LogLevel, fc.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
