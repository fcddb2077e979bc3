package config

import "time"

// LLMConfig selects the analysis backend
type LLMConfig struct {
	Provider string
}

// OpenAIConfig configures the chat completions client. An empty APIKey means
// the key comes from the credential store.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// GeminiConfig configures the Google Gemini client
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// BedrockConfig configures the Amazon Bedrock runtime client
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
}

// AnalysisConfig holds the settings of a single analysis
type AnalysisConfig struct {
	Timeout       time.Duration
	MaxBodySize   int
	SenderDomains []string
}

// StorageConfig holds the credential storage backends
type StorageConfig struct {
	LocalType          string
	LocalSQLitePath    string
	RoamingType        string
	RoamingMySQLDSN    string
	RoamingSaveTimeout time.Duration
}

// NetworkConfig holds the reachability check settings
type NetworkConfig struct {
	CheckReachability bool
	ProbeTimeout      time.Duration
}

// CacheConfig holds the result cache settings
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
	}
}

func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
	}
}

func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
	}
}

// GetAnalysis returns the analysis configuration
func (c *Config) GetAnalysis() (AnalysisConfig, error) {
	timeout, err := c.GetDuration("analysis.timeout")
	if err != nil {
		return AnalysisConfig{}, err
	}
	return AnalysisConfig{
		Timeout:       timeout,
		MaxBodySize:   c.GetInt("analysis.max_body_size"),
		SenderDomains: c.GetStringSlice("analysis.sender_domains"),
	}, nil
}

// GetStorage returns the credential storage configuration
func (c *Config) GetStorage() (StorageConfig, error) {
	saveTimeout, err := c.GetDuration("storage.roaming.save_timeout")
	if err != nil {
		return StorageConfig{}, err
	}
	return StorageConfig{
		LocalType:          c.GetString("storage.local.type"),
		LocalSQLitePath:    c.GetPath("storage.local.sqlite_path"),
		RoamingType:        c.GetString("storage.roaming.type"),
		RoamingMySQLDSN:    c.GetString("storage.roaming.mysql_dsn"),
		RoamingSaveTimeout: saveTimeout,
	}, nil
}

// GetNetwork returns the network configuration
func (c *Config) GetNetwork() (NetworkConfig, error) {
	probeTimeout, err := c.GetDuration("network.probe_timeout")
	if err != nil {
		return NetworkConfig{}, err
	}
	return NetworkConfig{
		CheckReachability: c.GetBool("network.check_reachability"),
		ProbeTimeout:      probeTimeout,
	}, nil
}

// GetCache returns the result cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetPath("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}
