// Package guard provides configuration loading.
package guard

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadOptions controls config loading.
type LoadOptions struct {
	ConfigPath string
	Args       []string
	Environ    []string
}

// LoadConfig loads configuration from defaults, file, env, and flags.
// A .env file in the working directory is folded into the environment
// before overrides apply.
func LoadConfig(opts LoadOptions) (*Config, error) {
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	environ := opts.Environ
	if environ == nil {
		_ = godotenv.Load()
		environ = os.Environ()
	}

	flagOverrides, err := parseFlagOverrides(args)
	if err != nil {
		return nil, err
	}

	configPath := opts.ConfigPath
	if flagOverrides.ConfigPath != nil {
		configPath = *flagOverrides.ConfigPath
	}

	cfg := defaultConfig()
	if configPath != "" {
		fileOverrides, err := loadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		applyConfigOverrides(cfg, fileOverrides)
	}
	if err := applyEnvOverrides(cfg, environ); err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, flagOverrides)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		EnableHTTP:       true,
		ListenAddr:       ":8080",
		GeneralLimit:     200,
		GeneralWindow:    time.Minute,
		AuthLimit:        20,
		AuthWindow:       5 * time.Minute,
		BurstThreshold:   30,
		BurstWindow:      10 * time.Second,
		LoginMaxAttempts: 10,
		LockoutDuration:  5 * time.Minute,
		BlockDuration:    15 * time.Minute,
		SweepInterval:    time.Minute,
		HTTPReadTimeout:  5 * time.Second,
		HTTPWriteTimeout: 10 * time.Second,
		HTTPIdleTimeout:  60 * time.Second,
		DrainTimeout:     5 * time.Second,
		MaxBodyBytes:     1 << 20,
	}
}

type configOverrides struct {
	EnableHTTP       *bool          `json:"EnableHTTP"`
	ListenAddr       *string        `json:"ListenAddr"`
	EnableAdminAuth  *bool          `json:"EnableAdminAuth"`
	AdminToken       *string        `json:"AdminToken"`
	GeneralLimit     *int64         `json:"GeneralLimit"`
	GeneralWindow    *durationValue `json:"GeneralWindow"`
	AuthLimit        *int64         `json:"AuthLimit"`
	AuthWindow       *durationValue `json:"AuthWindow"`
	BurstThreshold   *int           `json:"BurstThreshold"`
	BurstWindow      *durationValue `json:"BurstWindow"`
	LoginMaxAttempts *int           `json:"LoginMaxAttempts"`
	LockoutDuration  *durationValue `json:"LockoutDuration"`
	BlockDuration    *durationValue `json:"BlockDuration"`
	SweepInterval    *durationValue `json:"SweepInterval"`
	AllowedOrigins   []string       `json:"AllowedOrigins"`
	HTTPReadTimeout  *durationValue `json:"HTTPReadTimeout"`
	HTTPWriteTimeout *durationValue `json:"HTTPWriteTimeout"`
	HTTPIdleTimeout  *durationValue `json:"HTTPIdleTimeout"`
	DrainTimeout     *durationValue `json:"DrainTimeout"`
	MaxBodyBytes     *int64         `json:"MaxBodyBytes"`
}

// durationValue decodes JSON numbers or numeric strings as milliseconds.
type durationValue struct {
	Value time.Duration
	Set   bool
}

func (d *durationValue) UnmarshalJSON(data []byte) error {
	if d == nil {
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		value, err := number.Int64()
		if err != nil {
			return err
		}
		d.Value = time.Duration(value) * time.Millisecond
		d.Set = true
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		d.Value = time.Duration(value) * time.Millisecond
		d.Set = true
		return nil
	}
	return errors.New("invalid duration value")
}

type flagOverrides struct {
	ConfigPath       *string
	ListenAddr       *string
	EnableAdminAuth  *bool
	AdminToken       *string
	GeneralLimit     *int64
	GeneralWindowS   *int
	AuthLimit        *int64
	AuthWindowS      *int
	BurstThreshold   *int
	BurstWindowS     *int
	LoginMaxAttempts *int
	LockoutMinutes   *int
	BlockMinutes     *int
	SweepIntervalS   *int
}

func parseFlagOverrides(args []string) (flagOverrides, error) {
	fs := flag.NewFlagSet("portalguard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	configPath := fs.String("config", "", "config file path")
	listenAddr := fs.String("listen_addr", "", "http listen address")
	enableAdminAuth := fs.Bool("enable_admin_auth", false, "enable admin auth")
	adminToken := fs.String("admin_token", "", "admin token")
	generalLimit := fs.Int64("general_limit", 0, "general request cap per window")
	generalWindow := fs.Int("general_window_s", 0, "general window seconds")
	authLimit := fs.Int64("auth_limit", 0, "auth request cap per window")
	authWindow := fs.Int("auth_window_s", 0, "auth window seconds")
	burstThreshold := fs.Int("burst_threshold", 0, "burst threshold")
	burstWindow := fs.Int("burst_window_s", 0, "burst window seconds")
	loginMaxAttempts := fs.Int("login_max_attempts", 0, "failed logins before lockout")
	lockoutMinutes := fs.Int("lockout_minutes", 0, "lockout duration minutes")
	blockMinutes := fs.Int("block_minutes", 0, "block duration minutes")
	sweepInterval := fs.Int("sweep_interval_s", 0, "sweep interval seconds")

	if err := fs.Parse(args); err != nil {
		return flagOverrides{}, errors.New("invalid flag values")
	}

	overrides := flagOverrides{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			overrides.ConfigPath = configPath
		case "listen_addr":
			overrides.ListenAddr = listenAddr
		case "enable_admin_auth":
			overrides.EnableAdminAuth = enableAdminAuth
		case "admin_token":
			overrides.AdminToken = adminToken
		case "general_limit":
			overrides.GeneralLimit = generalLimit
		case "general_window_s":
			overrides.GeneralWindowS = generalWindow
		case "auth_limit":
			overrides.AuthLimit = authLimit
		case "auth_window_s":
			overrides.AuthWindowS = authWindow
		case "burst_threshold":
			overrides.BurstThreshold = burstThreshold
		case "burst_window_s":
			overrides.BurstWindowS = burstWindow
		case "login_max_attempts":
			overrides.LoginMaxAttempts = loginMaxAttempts
		case "lockout_minutes":
			overrides.LockoutMinutes = lockoutMinutes
		case "block_minutes":
			overrides.BlockMinutes = blockMinutes
		case "sweep_interval_s":
			overrides.SweepIntervalS = sweepInterval
		}
	})
	return overrides, nil
}

func loadConfigFile(path string) (*configOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides configOverrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	return &overrides, nil
}

func applyConfigOverrides(cfg *Config, overrides *configOverrides) {
	if cfg == nil || overrides == nil {
		return
	}
	if overrides.EnableHTTP != nil {
		cfg.EnableHTTP = *overrides.EnableHTTP
	}
	if overrides.ListenAddr != nil {
		cfg.ListenAddr = *overrides.ListenAddr
	}
	if overrides.EnableAdminAuth != nil {
		cfg.EnableAdminAuth = *overrides.EnableAdminAuth
	}
	if overrides.AdminToken != nil {
		cfg.AdminToken = *overrides.AdminToken
	}
	if overrides.GeneralLimit != nil {
		cfg.GeneralLimit = *overrides.GeneralLimit
	}
	if overrides.GeneralWindow != nil && overrides.GeneralWindow.Set {
		cfg.GeneralWindow = overrides.GeneralWindow.Value
	}
	if overrides.AuthLimit != nil {
		cfg.AuthLimit = *overrides.AuthLimit
	}
	if overrides.AuthWindow != nil && overrides.AuthWindow.Set {
		cfg.AuthWindow = overrides.AuthWindow.Value
	}
	if overrides.BurstThreshold != nil {
		cfg.BurstThreshold = *overrides.BurstThreshold
	}
	if overrides.BurstWindow != nil && overrides.BurstWindow.Set {
		cfg.BurstWindow = overrides.BurstWindow.Value
	}
	if overrides.LoginMaxAttempts != nil {
		cfg.LoginMaxAttempts = *overrides.LoginMaxAttempts
	}
	if overrides.LockoutDuration != nil && overrides.LockoutDuration.Set {
		cfg.LockoutDuration = overrides.LockoutDuration.Value
	}
	if overrides.BlockDuration != nil && overrides.BlockDuration.Set {
		cfg.BlockDuration = overrides.BlockDuration.Value
	}
	if overrides.SweepInterval != nil && overrides.SweepInterval.Set {
		cfg.SweepInterval = overrides.SweepInterval.Value
	}
	if overrides.AllowedOrigins != nil {
		cfg.AllowedOrigins = overrides.AllowedOrigins
	}
	if overrides.HTTPReadTimeout != nil && overrides.HTTPReadTimeout.Set {
		cfg.HTTPReadTimeout = overrides.HTTPReadTimeout.Value
	}
	if overrides.HTTPWriteTimeout != nil && overrides.HTTPWriteTimeout.Set {
		cfg.HTTPWriteTimeout = overrides.HTTPWriteTimeout.Value
	}
	if overrides.HTTPIdleTimeout != nil && overrides.HTTPIdleTimeout.Set {
		cfg.HTTPIdleTimeout = overrides.HTTPIdleTimeout.Value
	}
	if overrides.DrainTimeout != nil && overrides.DrainTimeout.Set {
		cfg.DrainTimeout = overrides.DrainTimeout.Value
	}
	if overrides.MaxBodyBytes != nil {
		cfg.MaxBodyBytes = *overrides.MaxBodyBytes
	}
}

func applyEnvOverrides(cfg *Config, environ []string) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	values := envMap(environ)
	if value, ok := values["PORTALGUARD_LISTEN_ADDR"]; ok {
		cfg.ListenAddr = value
	}
	if value, ok := values["PORTALGUARD_ENABLE_HTTP"]; ok {
		parsed, err := parseBoolEnv("PORTALGUARD_ENABLE_HTTP", value)
		if err != nil {
			return err
		}
		cfg.EnableHTTP = parsed
	}
	if value, ok := values["PORTALGUARD_ENABLE_ADMIN_AUTH"]; ok {
		parsed, err := parseBoolEnv("PORTALGUARD_ENABLE_ADMIN_AUTH", value)
		if err != nil {
			return err
		}
		cfg.EnableAdminAuth = parsed
	}
	if value, ok := values["PORTALGUARD_ADMIN_TOKEN"]; ok {
		cfg.AdminToken = value
	}
	if value, ok := values["PORTALGUARD_GENERAL_LIMIT"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_GENERAL_LIMIT", value)
		if err != nil {
			return err
		}
		cfg.GeneralLimit = parsed
	}
	if value, ok := values["PORTALGUARD_GENERAL_WINDOW_S"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_GENERAL_WINDOW_S", value)
		if err != nil {
			return err
		}
		cfg.GeneralWindow = time.Duration(parsed) * time.Second
	}
	if value, ok := values["PORTALGUARD_AUTH_LIMIT"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_AUTH_LIMIT", value)
		if err != nil {
			return err
		}
		cfg.AuthLimit = parsed
	}
	if value, ok := values["PORTALGUARD_AUTH_WINDOW_S"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_AUTH_WINDOW_S", value)
		if err != nil {
			return err
		}
		cfg.AuthWindow = time.Duration(parsed) * time.Second
	}
	if value, ok := values["PORTALGUARD_BURST_THRESHOLD"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_BURST_THRESHOLD", value)
		if err != nil {
			return err
		}
		cfg.BurstThreshold = int(parsed)
	}
	if value, ok := values["PORTALGUARD_BURST_WINDOW_S"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_BURST_WINDOW_S", value)
		if err != nil {
			return err
		}
		cfg.BurstWindow = time.Duration(parsed) * time.Second
	}
	if value, ok := values["PORTALGUARD_LOGIN_MAX_ATTEMPTS"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_LOGIN_MAX_ATTEMPTS", value)
		if err != nil {
			return err
		}
		cfg.LoginMaxAttempts = int(parsed)
	}
	if value, ok := values["PORTALGUARD_LOCKOUT_MINUTES"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_LOCKOUT_MINUTES", value)
		if err != nil {
			return err
		}
		cfg.LockoutDuration = time.Duration(parsed) * time.Minute
	}
	if value, ok := values["PORTALGUARD_BLOCK_MINUTES"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_BLOCK_MINUTES", value)
		if err != nil {
			return err
		}
		cfg.BlockDuration = time.Duration(parsed) * time.Minute
	}
	if value, ok := values["PORTALGUARD_SWEEP_INTERVAL_S"]; ok {
		parsed, err := parseIntEnv("PORTALGUARD_SWEEP_INTERVAL_S", value)
		if err != nil {
			return err
		}
		cfg.SweepInterval = time.Duration(parsed) * time.Second
	}
	if value, ok := values["PORTALGUARD_ALLOWED_ORIGINS"]; ok {
		cfg.AllowedOrigins = splitOrigins(value)
	}
	return nil
}

func applyFlagOverrides(cfg *Config, overrides flagOverrides) {
	if cfg == nil {
		return
	}
	if overrides.ListenAddr != nil {
		cfg.ListenAddr = *overrides.ListenAddr
	}
	if overrides.EnableAdminAuth != nil {
		cfg.EnableAdminAuth = *overrides.EnableAdminAuth
	}
	if overrides.AdminToken != nil {
		cfg.AdminToken = *overrides.AdminToken
	}
	if overrides.GeneralLimit != nil {
		cfg.GeneralLimit = *overrides.GeneralLimit
	}
	if overrides.GeneralWindowS != nil {
		cfg.GeneralWindow = time.Duration(*overrides.GeneralWindowS) * time.Second
	}
	if overrides.AuthLimit != nil {
		cfg.AuthLimit = *overrides.AuthLimit
	}
	if overrides.AuthWindowS != nil {
		cfg.AuthWindow = time.Duration(*overrides.AuthWindowS) * time.Second
	}
	if overrides.BurstThreshold != nil {
		cfg.BurstThreshold = *overrides.BurstThreshold
	}
	if overrides.BurstWindowS != nil {
		cfg.BurstWindow = time.Duration(*overrides.BurstWindowS) * time.Second
	}
	if overrides.LoginMaxAttempts != nil {
		cfg.LoginMaxAttempts = *overrides.LoginMaxAttempts
	}
	if overrides.LockoutMinutes != nil {
		cfg.LockoutDuration = time.Duration(*overrides.LockoutMinutes) * time.Minute
	}
	if overrides.BlockMinutes != nil {
		cfg.BlockDuration = time.Duration(*overrides.BlockMinutes) * time.Minute
	}
	if overrides.SweepIntervalS != nil {
		cfg.SweepInterval = time.Duration(*overrides.SweepIntervalS) * time.Second
	}
}

func envMap(environ []string) map[string]string {
	values := make(map[string]string)
	for _, entry := range environ {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = parts[1]
	}
	return values
}

func parseBoolEnv(key, value string) (bool, error) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.New("invalid boolean for " + key)
	}
	return parsed, nil
}

func parseIntEnv(key, value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.New("invalid integer for " + key)
	}
	return parsed, nil
}

func splitOrigins(value string) []string {
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
