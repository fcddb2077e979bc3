package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. VERTRETUNG_ANALYSIS_TIMEOUT for analysis.timeout
const EnvPrefix = "VERTRETUNG"

// Config wraps a Viper instance with typed accessors, see models.go
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. configFile may be empty, in which
// case config.yaml is searched in the default locations. A .env file in the
// working directory is loaded first when present.
func New(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/vertretungsanalyse/")
		v.AddConfigPath("$HOME/.vertretungsanalyse")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper wraps v without reading a file or the environment
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper returns a Viper instance holding only the defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names of the SDKs
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("bedrock.region", EnvPrefix+"_BEDROCK_REGION", "AWS_REGION")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")

	// Providers
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.7)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 500)
	v.SetDefault("gemini.temperature", 0.7)

	v.SetDefault("bedrock.region", "eu-central-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 500)
	v.SetDefault("bedrock.temperature", 0.7)

	// Analysis
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.max_body_size", 16384)
	v.SetDefault("analysis.sender_domains", []string{})

	// API key storage
	v.SetDefault("storage.local.type", "sqlite")
	v.SetDefault("storage.local.sqlite_path", "$HOME/.vertretungsanalyse/settings.db")
	v.SetDefault("storage.roaming.type", "none")
	v.SetDefault("storage.roaming.mysql_dsn", "")
	v.SetDefault("storage.roaming.save_timeout", "5s")

	v.SetDefault("network.check_reachability", true)
	v.SetDefault("network.probe_timeout", "3s")

	// Result cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "$HOME/.vertretungsanalyse/cache.db")
	v.SetDefault("cache.mysql_dsn", "")

	v.SetDefault("metrics.file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses key as a Go duration string such as "30s"
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetPath returns key with $VARS expanded
func (c *Config) GetPath(key string) string {
	return os.ExpandEnv(c.GetString(key))
}

// Set overrides a configuration value, used for command line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}
