package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the proxy server configuration.
// Secrets have no defaults in code; the API key comes from the config file or the environment.
type AppConfig struct {
	AppPort            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Upstream completion API
	LLMProvider          string
	LLMAPIKey            string
	LLMBaseURL           string
	LLMModel             string
	LLMTimeoutSec        int
	LLMRequestsPerSecond float64
	LLMMaxRetries        int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom("config")
	if err != nil {
		log.Printf("config: %v; continuing with defaults and environment", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// LoadFrom builds a configuration from dir without caching it.
// Precedence: dir/config.json or dir/config.yaml -> defaults -> environment variable overrides.
// A malformed file is reported but the defaults and environment still apply.
func LoadFrom(dir string) (AppConfig, error) {
	var c AppConfig
	var fileErr error
	if raw, err := readConfigFile(dir); err != nil {
		fileErr = err
	} else if raw != nil {
		applyRaw(raw, &c)
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c, fileErr
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// readConfigFile returns the first of config.json, config.yaml, config.yml
// found in dir as a generic map. Missing files are not an error.
func readConfigFile(dir string) (map[string]any, error) {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw map[string]any
		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, &raw)
		} else {
			err = yaml.Unmarshal(data, &raw)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return raw, nil
	}
	return nil, nil
}

// Helpers to read string/int/float/bool safely from decoded JSON or YAML.
func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case json.Number:
			i, _ := t.Int64()
			return int(i)
		}
	}
	return 0
}

func getFloat(m map[string]any, key string) float64 {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		}
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getStringSlice(m map[string]any, key string) []string {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
	}
	return nil
}

// applyRaw maps grouped sections first, then flat keys for whatever is still unset.
func applyRaw(raw map[string]any, out *AppConfig) {
	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if l, ok := raw["llm"].(map[string]any); ok {
		out.LLMProvider = getString(l, "Provider")
		out.LLMAPIKey = getString(l, "APIKey")
		out.LLMBaseURL = getString(l, "BaseURL")
		out.LLMModel = getString(l, "Model")
		out.LLMTimeoutSec = getInt(l, "TimeoutSec")
		out.LLMRequestsPerSecond = getFloat(l, "RequestsPerSecond")
		out.LLMMaxRetries = getInt(l, "MaxRetries")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	// flat keys
	if out.AppPort == "" {
		out.AppPort = getString(raw, "AppPort")
	}
	if out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = getInt(raw, "RateLimitPerMinute")
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = getStringSlice(raw, "AllowedOrigins")
	}
	if out.GinMode == "" {
		out.GinMode = getString(raw, "GinMode")
	}
	if out.GinPath == "" {
		out.GinPath = getString(raw, "GinPath")
	}
	if out.LLMProvider == "" {
		out.LLMProvider = getString(raw, "LLMProvider")
	}
	if out.LLMAPIKey == "" {
		out.LLMAPIKey = getString(raw, "LLMAPIKey")
	}
	if out.LLMBaseURL == "" {
		out.LLMBaseURL = getString(raw, "LLMBaseURL")
	}
	if out.LLMModel == "" {
		out.LLMModel = getString(raw, "LLMModel")
	}
	if out.LLMTimeoutSec == 0 {
		out.LLMTimeoutSec = getInt(raw, "LLMTimeoutSec")
	}
	if out.LLMRequestsPerSecond == 0 {
		out.LLMRequestsPerSecond = getFloat(raw, "LLMRequestsPerSecond")
	}
	if out.LogLevel == "" {
		out.LogLevel = getString(raw, "LogLevel")
	}
	if out.LogPath == "" {
		out.LogPath = getString(raw, "LogPath")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3001"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.LLMProvider == "" {
		c.LLMProvider = "openai"
	}
	if c.LLMTimeoutSec == 0 {
		c.LLMTimeoutSec = 120
	}
	if c.LLMMaxRetries == 0 {
		c.LLMMaxRetries = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("PORT", ""); v != "" && os.Getenv("APP_PORT") == "" {
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("LLM_PROVIDER", ""); v != "" {
		c.LLMProvider = v
	}
	// Provider-specific key names are accepted as fallbacks.
	if v := getEnv("LLM_API_KEY", ""); v != "" {
		c.LLMAPIKey = v
	} else if c.LLMAPIKey == "" {
		switch strings.ToLower(c.LLMProvider) {
		case "gemini":
			c.LLMAPIKey = getEnv("GEMINI_API_KEY", "")
		default:
			c.LLMAPIKey = getEnv("OPENAI_API_KEY", "")
		}
	}
	if v := getEnv("LLM_BASE_URL", ""); v != "" {
		c.LLMBaseURL = v
	}
	if v := getEnv("LLM_MODEL", ""); v != "" {
		c.LLMModel = v
	}
	if v := getEnv("LLM_TIMEOUT_SEC", ""); v != "" {
		c.LLMTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("LLM_RPS", ""); v != "" {
		c.LLMRequestsPerSecond = mustParseFloat(v)
	}
	if v := getEnv("LLM_MAX_RETRIES", ""); v != "" {
		c.LLMMaxRetries = mustParseInt(v)
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseFloat(val string) float64 {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("invalid number value %s: %v", val, err)
	}
	return f
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
