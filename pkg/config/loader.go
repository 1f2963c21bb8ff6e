package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "JUDGEIDE_CONFIG"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, JUDGEIDE_CONFIG env, ./config.yaml, /etc/judgeide/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. JUDGEIDE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/judgeide/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/judgeide/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
// PORT and GOOGLE_GEN_AI_API_KEY are honoured for deployments of the
// Node.js proxy this server replaces; the JUDGEIDE_ names win when both
// are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GOOGLE_GEN_AI_API_KEY"); v != "" {
		cfg.Assist.APIKey = v
	}

	if v := os.Getenv("JUDGEIDE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("JUDGEIDE_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("JUDGEIDE_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	// Judge0 endpoints.
	if v := os.Getenv("JUDGEIDE_JUDGE0_CE_URL"); v != "" {
		cfg.Judge0.CE.AuthURL = v
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_CE_UNAUTH_URL"); v != "" {
		cfg.Judge0.CE.UnauthURL = v
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_EXTRA_CE_URL"); v != "" {
		cfg.Judge0.ExtraCE.AuthURL = v
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_EXTRA_CE_UNAUTH_URL"); v != "" {
		cfg.Judge0.ExtraCE.UnauthURL = v
	}
	// One key for both flavors, as issued by the hosted gateway.
	if v := os.Getenv("JUDGEIDE_JUDGE0_API_KEY"); v != "" {
		cfg.Judge0.CE.APIKey = v
		cfg.Judge0.ExtraCE.APIKey = v
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_MAX_PROBES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Judge0.MaxProbes = n
		}
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_POLL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Judge0.PollDelay = d
		}
	}
	if v := os.Getenv("JUDGEIDE_JUDGE0_BACKOFF"); v != "" {
		cfg.Judge0.Backoff = v
	}

	// Assistant.
	if v := os.Getenv("JUDGEIDE_ASSIST_PROVIDER"); v != "" {
		cfg.Assist.Provider = v
	}
	if v := os.Getenv("JUDGEIDE_ASSIST_BASE_URL"); v != "" {
		cfg.Assist.BaseURL = v
	}
	if v := os.Getenv("JUDGEIDE_ASSIST_API_KEY"); v != "" {
		cfg.Assist.APIKey = v
	}
	if v := os.Getenv("JUDGEIDE_ASSIST_MODEL"); v != "" {
		cfg.Assist.Model = v
	}

	// History.
	if v := os.Getenv("JUDGEIDE_HISTORY"); v != "" {
		cfg.History.Type = v
	}
	if v := os.Getenv("JUDGEIDE_HISTORY_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxSize = size
		}
	}
	if v := os.Getenv("JUDGEIDE_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}

	// Auth.
	if v := os.Getenv("JUDGEIDE_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	// JUDGEIDE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("JUDGEIDE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	if v := os.Getenv("JUDGEIDE_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		}
	}
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	endpoints := []struct {
		name string
		ep   *EndpointConfig
	}{
		{"judge0.ce", &cfg.Judge0.CE},
		{"judge0.extra_ce", &cfg.Judge0.ExtraCE},
	}
	for _, e := range endpoints {
		if e.ep.APIKeyFile != "" && e.ep.APIKey == "" {
			val, err := readSecretFile(e.ep.APIKeyFile)
			if err != nil {
				return fmt.Errorf("%s.api_key_file: %w", e.name, err)
			}
			e.ep.APIKey = val
		}
	}

	if cfg.Assist.APIKeyFile != "" && cfg.Assist.APIKey == "" {
		val, err := readSecretFile(cfg.Assist.APIKeyFile)
		if err != nil {
			return fmt.Errorf("assist.api_key_file: %w", err)
		}
		cfg.Assist.APIKey = val
	}

	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	if cfg.History.Postgres.DSNFile != "" && cfg.History.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.History.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("history.postgres.dsn_file: %w", err)
		}
		cfg.History.Postgres.DSN = val
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
