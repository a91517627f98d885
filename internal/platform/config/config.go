// Package config loads and validates the service configuration from a YAML
// file, with TIMGATE_* environment overrides for deployment settings.
// Validation failures are fatal at startup; nothing is checked lazily at
// request time.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML durations in Go's "2h45m" notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"6h\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full service configuration.
type Config struct {
	Server       Server       `yaml:"server"`
	Mode         string       `yaml:"mode"`
	Federation   Federation   `yaml:"federation"`
	Localization Localization `yaml:"localization"`
	Rooms        Rooms        `yaml:"rooms"`
	Permissions  Permissions  `yaml:"permissions"`
	Storage      Storage      `yaml:"storage"`
	API          API          `yaml:"api"`
	Log          Log          `yaml:"log"`
}

// Server configures the HTTP listener and the homeserver identity.
type Server struct {
	Addr       string   `yaml:"addr"`
	ServerName string   `yaml:"server_name"`
	Admins     []string `yaml:"admins"`
}

// Federation configures the signed federation list and its trust material.
type Federation struct {
	ListURL      string `yaml:"list_url"`
	TrustBaseURL string `yaml:"trust_base_url"`
	ClientCert   string `yaml:"client_cert"`
	ClientKey    string `yaml:"client_key"`
}

// Localization configures the external directory lookup.
type Localization struct {
	LookupURL string `yaml:"lookup_url"`
}

// Rooms configures room-version policy and the lifecycle scanner.
type Rooms struct {
	AllowedVersions    []string `yaml:"allowed_versions"`
	DefaultVersion     string   `yaml:"default_version"`
	ScanInterval       Duration `yaml:"scan_interval"`
	InsuredOnlyEnabled bool     `yaml:"insured_only_enabled"`
	InsuredOnlyGrace   Duration `yaml:"insured_only_grace"`
	InactiveEnabled    bool     `yaml:"inactive_enabled"`
	InactiveGrace      Duration `yaml:"inactive_grace"`
}

// Permissions configures the default contact permission document.
type Permissions struct {
	DefaultSetting string `yaml:"default_setting"`
}

// Storage selects the backing stores. Empty values fall back to in-memory
// implementations.
type Storage struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisURL    string `yaml:"redis_url"`
}

// API configures the authenticated HTTP surface.
type API struct {
	Prefix       string `yaml:"prefix"`
	BearerSecret string `yaml:"bearer_secret"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path, applies environment overrides, fills
// defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Mode:   "pro",
		Rooms: Rooms{
			AllowedVersions:  []string{"9", "10"},
			DefaultVersion:   "10",
			InsuredOnlyGrace: Duration(6 * time.Hour),
			InactiveGrace:    Duration(26 * 7 * 24 * time.Hour),
		},
		Permissions: Permissions{DefaultSetting: "allow all"},
		API:         API{Prefix: "/tim/v1"},
		Log:         Log{Level: "info"},
	}
}

func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v := os.Getenv("TIMGATE_" + key); v != "" {
			*dst = v
		}
	}
	set("ADDR", &cfg.Server.Addr)
	set("SERVER_NAME", &cfg.Server.ServerName)
	set("MODE", &cfg.Mode)
	set("FEDERATION_LIST_URL", &cfg.Federation.ListURL)
	set("TRUST_BASE_URL", &cfg.Federation.TrustBaseURL)
	set("CLIENT_CERT", &cfg.Federation.ClientCert)
	set("CLIENT_KEY", &cfg.Federation.ClientKey)
	set("LOOKUP_URL", &cfg.Localization.LookupURL)
	set("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	set("REDIS_URL", &cfg.Storage.RedisURL)
	set("API_PREFIX", &cfg.API.Prefix)
	set("BEARER_SECRET", &cfg.API.BearerSecret)
	set("LOG_LEVEL", &cfg.Log.Level)
	if v := os.Getenv("TIMGATE_ADMINS"); v != "" {
		cfg.Server.Admins = strings.Split(v, ",")
	}
}

// Validate checks the configuration for startup-fatal mistakes.
func (c *Config) Validate() error {
	if c.Server.ServerName == "" {
		return fmt.Errorf("server.server_name is required")
	}
	if c.Mode != "pro" && c.Mode != "epa" {
		return fmt.Errorf("mode must be \"pro\" or \"epa\", got %q", c.Mode)
	}
	if c.Federation.ListURL == "" {
		return fmt.Errorf("federation.list_url is required")
	}
	if c.Federation.TrustBaseURL == "" {
		return fmt.Errorf("federation.trust_base_url is required")
	}
	for _, raw := range []string{c.Federation.ListURL, c.Federation.TrustBaseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid federation URL %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("federation URL %q must be http or https", raw)
		}
		if u.Scheme == "https" && c.Federation.ClientCert == "" {
			return fmt.Errorf("federation.client_cert is required for https endpoint %q", raw)
		}
	}
	if c.Federation.ClientCert != "" && c.Federation.ClientKey == "" {
		return fmt.Errorf("federation.client_key is required when client_cert is set")
	}
	if c.Localization.LookupURL == "" {
		return fmt.Errorf("localization.lookup_url is required")
	}
	if len(c.Rooms.AllowedVersions) == 0 {
		return fmt.Errorf("rooms.allowed_versions must not be empty")
	}
	if c.Rooms.DefaultVersion == "" {
		return fmt.Errorf("rooms.default_version is required")
	}
	switch strings.ToLower(c.Permissions.DefaultSetting) {
	case "allow all", "block all":
	default:
		return fmt.Errorf("permissions.default_setting must be \"allow all\" or \"block all\", got %q", c.Permissions.DefaultSetting)
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("api.prefix must start with \"/\"")
	}
	return nil
}
