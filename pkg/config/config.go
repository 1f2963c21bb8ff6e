// Package config provides unified configuration for the judgeide server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (JUDGEIDE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the judgeide server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Judge0        Judge0Config        `yaml:"judge0"`
	Assist        AssistConfig        `yaml:"assist"`
	History       HistoryConfig       `yaml:"history"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	StaticDir       string        `yaml:"static_dir"`       // optional front end assets

	// AllowedOrigins lists origins allowed for CORS and WebSocket upgrades.
	// "*" allows any origin. Default: ["*"].
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EndpointConfig holds the base URLs and credential of one Judge0 flavor.
type EndpointConfig struct {
	AuthURL    string `yaml:"auth_url"`
	UnauthURL  string `yaml:"unauth_url"`
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
}

// Judge0Config holds the execution service settings.
type Judge0Config struct {
	CE      EndpointConfig `yaml:"ce"`
	ExtraCE EndpointConfig `yaml:"extra_ce"`

	Timeout      time.Duration `yaml:"timeout"`       // default: 30s
	InitialDelay time.Duration `yaml:"initial_delay"` // default: 0
	PollDelay    time.Duration `yaml:"poll_delay"`    // default: 100ms
	Backoff      string        `yaml:"backoff"`       // "constant" or "exponential", default: "constant"
	MaxDelay     time.Duration `yaml:"max_delay"`     // cap for exponential backoff, default: 2s
	MaxProbes    int           `yaml:"max_probes"`    // default: 50

	// AdditionalFilesURL locates the bundle attached to SQLite submissions.
	AdditionalFilesURL string `yaml:"additional_files_url"`

	MaxSourceSize int `yaml:"max_source_size"` // default: 1 MiB
	MaxStdinSize  int `yaml:"max_stdin_size"`  // default: 1 MiB
}

// AssistConfig holds the AI assistant settings. An empty API key disables
// the assistant endpoints.
type AssistConfig struct {
	Provider   string        `yaml:"provider"` // "gemini" or "openai", default: "gemini"
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"` // default: 60s
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`

	// Judge0APIKey, when set, is used instead of the judge0 section's key
	// for runs submitted with this API key.
	Judge0APIKey string `yaml:"judge0_api_key" json:"judge0_api_key"`
}

// JWTConfig holds JWT validation settings for type=jwt. At least one of
// secret (HMAC) and jwks_url (RSA) is required.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`
	SecretFile  string        `yaml:"secret_file"` // _file variant for secret
	JWKSURL     string        `yaml:"jwks_url"`
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	TenantClaim string        `yaml:"tenant_claim"` // default: "tenant"
	TierClaim   string        `yaml:"tier_claim"`   // default: "tier"
	Leeway      time.Duration `yaml:"leeway"`
	CacheTTL    time.Duration `yaml:"cache_ttl"` // default: 1h
}

// RateLimitConfig holds per-tier request limits. Zero disables limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"` // tier name -> requests per minute
}

// MCPConfig holds settings of the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log settings. JUDGEIDE_LOG_LEVEL and JUDGEIDE_DEBUG
// take precedence when set.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN or ERROR, default: INFO
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
			AllowedOrigins:  []string{"*"},
		},
		Judge0: Judge0Config{
			CE: EndpointConfig{
				AuthURL:   "https://judge0-ce.p.sulu.sh",
				UnauthURL: "https://ce.judge0.com",
			},
			ExtraCE: EndpointConfig{
				AuthURL:   "https://judge0-extra-ce.p.sulu.sh",
				UnauthURL: "https://extra-ce.judge0.com",
			},
			Timeout:            30 * time.Second,
			PollDelay:          100 * time.Millisecond,
			Backoff:            "constant",
			MaxDelay:           2 * time.Second,
			MaxProbes:          50,
			AdditionalFilesURL: "https://ide.judge0.com/data/additional_files_zip_base64.txt",
			MaxSourceSize:      1 << 20,
			MaxStdinSize:       1 << 20,
		},
		Assist: AssistConfig{
			Provider: "gemini",
			Timeout:  60 * time.Second,
		},
		History: HistoryConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				TenantClaim: "tenant",
				TierClaim:   "tier",
				CacheTTL:    time.Hour,
			},
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
