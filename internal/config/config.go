package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dentclaim/dentclaim/internal/domain/claim/uke"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	LogFormat   string   `mapstructure:"LOG_FORMAT"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	FeeRevision        string  `mapstructure:"FEE_REVISION"`
	BaselineRevision   string  `mapstructure:"BASELINE_REVISION"`
	DefaultBurdenRatio float64 `mapstructure:"DEFAULT_BURDEN_RATIO"`
	NewVisitGapDays    int     `mapstructure:"NEW_VISIT_GAP_DAYS"`

	ClinicCode     string `mapstructure:"CLINIC_CODE"`
	ClinicName     string `mapstructure:"CLINIC_NAME"`
	ClinicPhone    string `mapstructure:"CLINIC_PHONE"`
	PrefectureCode string `mapstructure:"PREFECTURE_CODE"`
	ReviewerCode   string `mapstructure:"REVIEWER_CODE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_FORMAT", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"FEE_REVISION", "BASELINE_REVISION", "DEFAULT_BURDEN_RATIO", "NEW_VISIT_GAP_DAYS",
	"CLINIC_CODE", "CLINIC_NAME", "CLINIC_PHONE", "PREFECTURE_CODE", "REVIEWER_CODE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("FEE_REVISION", "R06")
	v.SetDefault("BASELINE_REVISION", "R04")
	v.SetDefault("DEFAULT_BURDEN_RATIO", 0.3)
	v.SetDefault("NEW_VISIT_GAP_DAYS", 90)
	v.SetDefault("REVIEWER_CODE", "1")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ConsoleLogs reports whether logs go to a human-readable console writer.
func (c *Config) ConsoleLogs() bool {
	return c.IsDev() || c.LogFormat == "text"
}

// Validate checks the billing parameters and that authentication is
// configured outside development.
func (c *Config) Validate() error {
	if c.DefaultBurdenRatio <= 0 || c.DefaultBurdenRatio > 1 {
		return fmt.Errorf("DEFAULT_BURDEN_RATIO must be in (0, 1], got %v", c.DefaultBurdenRatio)
	}
	if c.NewVisitGapDays < 1 {
		return fmt.Errorf("NEW_VISIT_GAP_DAYS must be positive, got %d", c.NewVisitGapDays)
	}
	if c.FeeRevision == "" {
		return fmt.Errorf("FEE_REVISION is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"text\", got %q", c.LogFormat)
	}
	if c.ReviewerCode != "1" && c.ReviewerCode != "2" {
		return fmt.Errorf("REVIEWER_CODE must be 1 (社保) or 2 (国保), got %q", c.ReviewerCode)
	}
	if c.PrefectureCode != "" && !digits(c.PrefectureCode, 2) {
		return fmt.Errorf("PREFECTURE_CODE must be 2 digits, got %q", c.PrefectureCode)
	}
	if c.ClinicCode != "" && !digits(c.ClinicCode, 7) {
		return fmt.Errorf("CLINIC_CODE must be 7 digits, got %q", c.ClinicCode)
	}
	if c.IsDev() {
		return nil
	}
	if c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("one of AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is for development only; use AUTH_ISSUER in production")
	}
	return nil
}

// Facility is the clinic block written into the UK record of a claim file.
func (c *Config) Facility() uke.Facility {
	return uke.Facility{
		Reviewer:   c.ReviewerCode,
		Prefecture: c.PrefectureCode,
		ClinicCode: c.ClinicCode,
		ClinicName: c.ClinicName,
		Phone:      c.ClinicPhone,
	}
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
