// Package config loads runtime settings from CENTRALIS_* environment variables,
// optionally layered over an INI file named by CENTRALIS_CONFIG.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/ini.v1"
)

const envPrefix = "CENTRALIS_"

// Config is the resolved process configuration.
type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	DBURL        string
	AuthSecret   string
	ExportAPIKey string
	RolePolicy   string
	DevTokens    bool
	SeedDemo     bool
	AutoMigrate  bool
	TrustProxy   bool
	RateBurst    int
	RatePerSec   rate.Limit
	TokenTTL     time.Duration
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		HTTPAddr:   ":8080",
		GRPCAddr:   ":9090",
		RateBurst:  20,
		RatePerSec: 10,
		TokenTTL:   12 * time.Hour,
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom resolves configuration through getenv. Keys from the INI file named by
// CENTRALIS_CONFIG are applied first; environment variables override them.
func LoadFrom(getenv func(string) string) (Config, error) {
	values := map[string]string{}
	if path := strings.TrimSpace(getenv(envPrefix + "CONFIG")); path != "" {
		fileValues, err := readINI(path)
		if err != nil {
			return Config{}, err
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, key := range keys {
		if v := getenv(envPrefix + key); v != "" {
			values[key] = v
		}
	}
	return parse(values)
}

var keys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "DB_URL", "AUTH_SECRET", "EXPORT_API_KEY", "ROLE_POLICY",
	"DEV_TOKENS", "SEED_DEMO", "AUTO_MIGRATE", "TRUST_PROXY", "RATE_BURST", "RATE_PER_SEC", "TOKEN_TTL",
}

func readINI(path string) (map[string]string, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	out := map[string]string{}
	for k, v := range file.Section("").KeysHash() {
		out[strings.TrimPrefix(strings.ToUpper(k), envPrefix)] = strings.TrimSpace(v)
	}
	return out, nil
}

func parse(values map[string]string) (Config, error) {
	cfg := Defaults()
	if v, ok := values["HTTP_ADDR"]; ok {
		cfg.HTTPAddr = v
	}
	if v, ok := values["GRPC_ADDR"]; ok {
		cfg.GRPCAddr = v
	}
	cfg.DBURL = values["DB_URL"]
	cfg.AuthSecret = values["AUTH_SECRET"]
	cfg.ExportAPIKey = values["EXPORT_API_KEY"]
	cfg.RolePolicy = values["ROLE_POLICY"]

	var err error
	if cfg.DevTokens, err = parseBool(values, "DEV_TOKENS"); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemo, err = parseBool(values, "SEED_DEMO"); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = parseBool(values, "AUTO_MIGRATE"); err != nil {
		return Config{}, err
	}
	if cfg.TrustProxy, err = parseBool(values, "TRUST_PROXY"); err != nil {
		return Config{}, err
	}
	if v, ok := values["RATE_BURST"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: RATE_BURST must be a positive integer, got %q", v)
		}
		cfg.RateBurst = n
	}
	if v, ok := values["RATE_PER_SEC"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("config: RATE_PER_SEC must be a positive number, got %q", v)
		}
		cfg.RatePerSec = rate.Limit(f)
	}
	if v, ok := values["TOKEN_TTL"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("config: TOKEN_TTL must be a positive duration, got %q", v)
		}
		cfg.TokenTTL = d
	}
	return cfg, nil
}

func parseBool(values map[string]string, key string) (bool, error) {
	v, ok := values[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s must be a boolean, got %q", key, v)
	}
	return b, nil
}

// MemoryBackend reports whether no database is configured.
func (c Config) MemoryBackend() bool {
	return strings.TrimSpace(c.DBURL) == ""
}
