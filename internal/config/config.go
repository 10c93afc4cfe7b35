// Package config loads mailcheck settings from flags, MAILCHECK_* environment
// variables and a YAML config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tbckr/mailcheck/internal/appdir"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MAILCHECK"

// ErrUnknownKey is returned for a key that is not a recognised config setting.
var ErrUnknownKey = errors.New("unknown config key")

// DNS backends selectable with dns_backend.
const (
	BackendSystem = "system"
	BackendUDP    = "udp"
	BackendDoH    = "doh"
)

// Config is the fully-resolved configuration.
type Config struct {
	ConfigFile string `mapstructure:"-"`

	Verbose   bool   `mapstructure:"verbose"`
	LogFormat string `mapstructure:"log_format"`
	Output    string `mapstructure:"output"`

	Listen   string `mapstructure:"listen"`
	Livemode bool   `mapstructure:"livemode"`

	Proxy     string `mapstructure:"proxy"`
	UserAgent string `mapstructure:"user_agent"`

	DNSBackend string        `mapstructure:"dns_backend"`
	DNSServer  string        `mapstructure:"dns_server"`
	DoHURL     string        `mapstructure:"doh_url"`
	DNSRPS     float64       `mapstructure:"dns_rps"`
	DNSTimeout time.Duration `mapstructure:"dns_timeout"`

	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	NegativeCacheTTL time.Duration `mapstructure:"negative_cache_ttl"`

	ChunkSize     int           `mapstructure:"chunk_size"`
	ChunkDelay    time.Duration `mapstructure:"chunk_delay"`
	MaxEmails     int           `mapstructure:"max_emails"`
	MaxFileSizeMB int           `mapstructure:"max_file_size_mb"`
	CheckSMTP     bool          `mapstructure:"check_smtp"`
	ArtifactDir   string        `mapstructure:"artifact_dir"`
}

// DefaultConfigPath returns <UserConfigDir>/mailcheck/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := appdir.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// RegisterFlags declares --config plus one flag per config key on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: <user config dir>/mailcheck/config.yaml)")
	for _, k := range keys {
		name := flagName(k.name)
		switch k.kind {
		case kindBool:
			fs.BoolP(name, k.short, k.def.(bool), k.usage)
		case kindInt:
			fs.IntP(name, k.short, k.def.(int), k.usage)
		case kindFloat:
			fs.Float64P(name, k.short, k.def.(float64), k.usage)
		case kindDuration:
			fs.DurationP(name, k.short, k.def.(time.Duration), k.usage)
		default:
			fs.StringP(name, k.short, k.def.(string), k.usage)
		}
	}
}

// Load resolves the configuration for fs, which must have been prepared
// with RegisterFlags and parsed. The config file is created (0600) when
// missing.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfgFile, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("reading --config flag: %w", err)
	}
	if cfgFile == "" {
		if cfgFile, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := appdir.EnsureFile(cfgFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, k := range keys {
		if err := v.BindPFlag(k.name, fs.Lookup(flagName(k.name))); err != nil {
			return nil, fmt.Errorf("binding flag %q: %w", k.name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigFile = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum and range constraints that flag parsing cannot express.
func (c *Config) Validate() error {
	checks := []struct {
		key   string
		value string
	}{
		{"output", c.Output},
		{"log_format", c.LogFormat},
		{"dns_backend", c.DNSBackend},
		{"chunk_size", strconv.Itoa(c.ChunkSize)},
		{"max_emails", strconv.Itoa(c.MaxEmails)},
		{"max_file_size_mb", strconv.Itoa(c.MaxFileSizeMB)},
	}
	for _, ch := range checks {
		if _, err := ParseValue(ch.key, ch.value); err != nil {
			return err
		}
	}
	for name, d := range map[string]time.Duration{
		"dns_timeout": c.DNSTimeout, "cache_ttl": c.CacheTTL,
		"negative_cache_ttl": c.NegativeCacheTTL, "chunk_delay": c.ChunkDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if c.DNSRPS < 0 {
		return fmt.Errorf("dns_rps must not be negative, got %v", c.DNSRPS)
	}
	return nil
}

// Value returns the effective value of key formatted for display.
func (c *Config) Value(key string) (string, error) {
	key = NormalizeKey(key)
	switch key {
	case "verbose":
		return strconv.FormatBool(c.Verbose), nil
	case "log_format":
		return c.LogFormat, nil
	case "output":
		return c.Output, nil
	case "listen":
		return c.Listen, nil
	case "livemode":
		return strconv.FormatBool(c.Livemode), nil
	case "proxy":
		return c.Proxy, nil
	case "user_agent":
		return c.UserAgent, nil
	case "dns_backend":
		return c.DNSBackend, nil
	case "dns_server":
		return c.DNSServer, nil
	case "doh_url":
		return c.DoHURL, nil
	case "dns_rps":
		return strconv.FormatFloat(c.DNSRPS, 'f', -1, 64), nil
	case "dns_timeout":
		return c.DNSTimeout.String(), nil
	case "cache_ttl":
		return c.CacheTTL.String(), nil
	case "negative_cache_ttl":
		return c.NegativeCacheTTL.String(), nil
	case "chunk_size":
		return strconv.Itoa(c.ChunkSize), nil
	case "chunk_delay":
		return c.ChunkDelay.String(), nil
	case "max_emails":
		return strconv.Itoa(c.MaxEmails), nil
	case "max_file_size_mb":
		return strconv.Itoa(c.MaxFileSizeMB), nil
	case "check_smtp":
		return strconv.FormatBool(c.CheckSMTP), nil
	case "artifact_dir":
		return c.ArtifactDir, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// ValidKeys returns every config key in declaration order.
func ValidKeys() []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	return out
}

// NormalizeKey converts flag spelling ("chunk-size") to key spelling ("chunk_size").
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
}

// ValidateKey reports ErrUnknownKey for anything but a ValidKeys entry.
// Hyphenated flag spellings are accepted.
func ValidateKey(key string) error {
	if _, ok := lookup(key); !ok {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(ValidKeys(), ", "))
	}
	return nil
}

// ParseValue converts value to the type of key, enforcing enums and minimums.
func ParseValue(key, value string) (any, error) {
	k, ok := lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	switch k.kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid boolean %q", k.name, value)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", k.name, value)
		}
		if n < k.min {
			return nil, fmt.Errorf("%s must be at least %d, got %d", k.name, k.min, n)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%s: invalid non-negative number %q", k.name, value)
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%s: invalid duration %q", k.name, value)
		}
		return d.String(), nil
	}
	if len(k.enum) > 0 && !slices.Contains(k.enum, value) {
		return nil, fmt.Errorf("invalid %s %q: must be one of %s", k.name, value, strings.Join(k.enum, ", "))
	}
	return value, nil
}

// KeyCompletions returns the enum values of key, or nil for free-form keys.
func KeyCompletions(key string) []string {
	k, ok := lookup(key)
	if !ok {
		return nil
	}
	if k.kind == kindBool {
		return []string{"true", "false"}
	}
	return slices.Clone(k.enum)
}

func lookup(key string) (keySpec, bool) {
	key = NormalizeKey(key)
	for _, k := range keys {
		if k.name == key {
			return k, true
		}
	}
	return keySpec{}, false
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
