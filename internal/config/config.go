package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel placeholder values. A provider whose key still equals its
// placeholder is treated as not configured and is never probed.
const (
	PlaceholderOpenAIKey     = "your_openai_api_key_here"
	PlaceholderDeepSeekKey   = "your_deepseek_api_key_here"
	PlaceholderLiteLLMKey    = "your_litellm_api_key_here"
	PlaceholderCompatibleKey = "your_openai_compatible_api_key_here"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // development, production, testing
}

func (s ServerConfig) IsDev() bool  { return s.Env == "development" }
func (s ServerConfig) IsProd() bool { return s.Env == "production" }
func (s ServerConfig) IsTest() bool { return s.Env == "testing" }

// ProviderConfig holds the credential and endpoint for one upstream.
// Both fields are immutable for the process lifetime.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// IsPlaceholder reports whether a key is one of the documented "not
// configured" sentinels.
func IsPlaceholder(key string) bool {
	switch key {
	case PlaceholderOpenAIKey, PlaceholderDeepSeekKey, PlaceholderLiteLLMKey, PlaceholderCompatibleKey:
		return true
	}
	return false
}

// Configured reports whether a real credential is present. The sentinel
// placeholder counts as absent.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != "" && !IsPlaceholder(p.APIKey)
}

type ProvidersConfig struct {
	OpenAI           ProviderConfig `mapstructure:"openai"`
	DeepSeek         ProviderConfig `mapstructure:"deepseek"`
	LiteLLM          ProviderConfig `mapstructure:"litellm"`
	OpenAICompatible ProviderConfig `mapstructure:"openai_compatible"`
}

type StoreConfig struct {
	// Path is the sqlite DSN for request metadata. Empty disables the store.
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from an optional yaml file and environment
// variables, with .env loaded first.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("providers.openai.api_key", PlaceholderOpenAIKey)
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.deepseek.api_key", PlaceholderDeepSeekKey)
	v.SetDefault("providers.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("providers.litellm.api_key", PlaceholderLiteLLMKey)
	v.SetDefault("providers.litellm.base_url", "http://localhost:4000")
	v.SetDefault("providers.openai_compatible.api_key", PlaceholderCompatibleKey)
	v.SetDefault("providers.openai_compatible.base_url", "http://localhost:8000/v1")
	v.SetDefault("store.path", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("tracing.enabled", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy flat env names used by existing deployments.
	bindLegacyEnv(v, "server.port", "PORT")
	bindLegacyEnv(v, "server.env", "APP_ENV")
	bindLegacyEnv(v, "providers.openai.api_key", "OPENAI_API_KEY")
	bindLegacyEnv(v, "providers.openai.base_url", "OPENAI_API_BASE_URL")
	bindLegacyEnv(v, "providers.deepseek.api_key", "DEEPSEEK_API_KEY")
	bindLegacyEnv(v, "providers.deepseek.base_url", "DEEPSEEK_API_BASE_URL")
	bindLegacyEnv(v, "providers.litellm.api_key", "LITELLM_API_KEY")
	bindLegacyEnv(v, "providers.litellm.base_url", "LITELLM_API_BASE_URL")
	bindLegacyEnv(v, "providers.openai_compatible.api_key", "OPENAI_COMPATIBLE_API_KEY")
	bindLegacyEnv(v, "providers.openai_compatible.base_url", "OPENAI_COMPATIBLE_API_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func bindLegacyEnv(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}
