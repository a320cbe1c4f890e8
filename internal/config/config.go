package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every environment variable read into Config
const EnvPrefix = "ASKDB_"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Store     StoreConfig     `json:"store"`
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Synthesis SynthesisConfig `json:"synthesis"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug"`
}

// DatabaseConfig describes the target database questions are answered against
type DatabaseConfig struct {
	Driver       string `json:"driver"         env:"DB_DRIVER"          envDefault:"sqlite"`       // sqlite, duckdb, postgres, mysql
	DSN          string `json:"dsn"            env:"DB_DSN"             envDefault:"financial.db"` // file path or connection URL
	QueryTimeout string `json:"query_timeout"  env:"DB_QUERY_TIMEOUT"   envDefault:"30s"`
	MaxOpenConns int    `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS"  envDefault:"4"`
}

// StoreConfig describes the schema document store
type StoreConfig struct {
	Path        string `json:"path"          env:"STORE_PATH"          envDefault:"~/.config/askdb/schema_store.duckdb"`
	DefaultTopK int    `json:"default_top_k" env:"STORE_DEFAULT_TOP_K" envDefault:"3"`
	Description string `json:"description"   env:"STORE_DESCRIPTION"   envDefault:"Database table"`
}

// LLMConfig describes the completion service
type LLMConfig struct {
	Provider    string  `json:"provider"    env:"LLM_PROVIDER"    envDefault:"ollama"` // ollama, openai, anthropic
	Model       string  `json:"model"       env:"LLM_MODEL"       envDefault:"llama3"`
	BaseURL     string  `json:"base_url"    env:"LLM_BASE_URL"` // provider default when empty
	APIKey      string  `json:"api_key"     env:"LLM_API_KEY"`
	Temperature float64 `json:"temperature" env:"LLM_TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int     `json:"max_tokens"  env:"LLM_MAX_TOKENS"  envDefault:"512"`
	Timeout     string  `json:"timeout"     env:"LLM_TIMEOUT"     envDefault:"120s"`
}

// EmbeddingConfig describes how schema documents and questions are embedded
type EmbeddingConfig struct {
	Provider      string `json:"provider"        env:"EMBEDDING_PROVIDER"        envDefault:"hash"` // hash, ollama
	Model         string `json:"model"           env:"EMBEDDING_MODEL"           envDefault:"all-minilm"`
	BaseURL       string `json:"base_url"        env:"EMBEDDING_BASE_URL"        envDefault:"http://localhost:11434"`
	Dimensions    int    `json:"dimensions"      env:"EMBEDDING_DIMENSIONS"      envDefault:"384"`
	CacheDir      string `json:"cache_dir"       env:"EMBEDDING_CACHE_DIR"       envDefault:"~/.cache/askdb/embeddings"`
	CacheTTLHours int    `json:"cache_ttl_hours" env:"EMBEDDING_CACHE_TTL_HOURS" envDefault:"168"`
}

// SynthesisConfig tunes the generate-execute-repair loop
type SynthesisConfig struct {
	MaxAttempts int `json:"max_attempts" env:"SYNTH_MAX_ATTEMPTS" envDefault:"3"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"      envDefault:"info"`                           // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"     envDefault:"text"`                           // text, json
	Output    string `json:"output"     env:"LOG_OUTPUT"     envDefault:"stderr"`                         // stdout, stderr, file
	File      string `json:"file"       env:"LOG_FILE"       envDefault:"~/.config/askdb/logs/askdb.log"` // log file path when output is file
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE" envDefault:"false"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled     bool `json:"enabled"      env:"DEBUG"              envDefault:"false"`
	MetricsPort int  `json:"metrics_port" env:"DEBUG_METRICS_PORT" envDefault:"9464"`
	Verbose     bool `json:"verbose"      env:"VERBOSE"            envDefault:"false"`
}

// DefaultConfig returns the configuration built from envDefault tags only
func DefaultConfig() *Config {
	config := &Config{}
	_ = env.ParseWithOptions(config, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{},
	})

	return config
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// A missing .env is the normal case
	_ = godotenv.Load()

	config := DefaultConfig()

	configPath := getConfigPath(flagOverrides)
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Only variables actually present in the environment override the file
	if err := env.ParseWithOptions(config, env.Options{
		Prefix:              EnvPrefix,
		DefaultValueTagName: "envFileDefault",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "db-driver":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Driver = str
			}
		case "db-dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Database.DSN = str
			}
		case "store-path":
			if str, ok := value.(string); ok && str != "" {
				config.Store.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "max-attempts":
			if n, ok := value.(int); ok && n != 0 {
				config.Synthesis.MaxAttempts = n
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		case "config":
			// consumed by getConfigPath
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validDrivers := map[string]bool{
		"sqlite": true, "duckdb": true, "postgres": true, "mysql": true,
	}
	if !validDrivers[strings.ToLower(config.Database.Driver)] {
		return fmt.Errorf(
			"invalid database driver: %s (must be sqlite, duckdb, postgres, or mysql)",
			config.Database.Driver,
		)
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn must not be empty")
	}

	validLLMProviders := map[string]bool{
		"ollama": true, "openai": true, "anthropic": true,
	}
	if !validLLMProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be ollama, openai, or anthropic)",
			config.LLM.Provider,
		)
	}

	validEmbeddingProviders := map[string]bool{
		"hash": true, "ollama": true,
	}
	if !validEmbeddingProviders[strings.ToLower(config.Embedding.Provider)] {
		return fmt.Errorf(
			"invalid embedding provider: %s (must be hash or ollama)",
			config.Embedding.Provider,
		)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm timeout: %s", config.LLM.Timeout)
	}

	if config.Database.MaxOpenConns <= 0 {
		return fmt.Errorf(
			"database max open connections must be positive: %d",
			config.Database.MaxOpenConns,
		)
	}

	if config.Synthesis.MaxAttempts < 1 {
		return fmt.Errorf("synthesis max attempts must be at least 1: %d", config.Synthesis.MaxAttempts)
	}

	if config.Store.DefaultTopK < 1 {
		return fmt.Errorf("store default top k must be at least 1: %d", config.Store.DefaultTopK)
	}

	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2: %g", config.LLM.Temperature)
	}

	if config.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max tokens must be positive: %d", config.LLM.MaxTokens)
	}

	if config.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive: %d", config.Embedding.Dimensions)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed per-execution timeout
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// LLMTimeoutDuration returns the parsed completion HTTP timeout
func (c *Config) LLMTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath(nil)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath(overrides map[string]interface{}) string {
	if str, ok := overrides["config"].(string); ok && str != "" {
		return expandPath(str)
	}

	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Store.Path = expandPath(c.Store.Path)
	c.Embedding.CacheDir = expandPath(c.Embedding.CacheDir)
	c.Logging.File = expandPath(c.Logging.File)

	if c.Database.Driver == "sqlite" || c.Database.Driver == "duckdb" {
		c.Database.DSN = expandPath(c.Database.DSN)
	}
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askdb"
	}

	return filepath.Join(homeDir, ".config", "askdb")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Store.Path),
		c.Embedding.CacheDir,
	}

	if c.Logging.Output == "file" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
