package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the triage service
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Session  SessionConfig  `mapstructure:"session"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LLMConfig holds configuration for the OpenAI-compatible completion endpoint
type LLMConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
}

// CorpusConfig holds reference corpus configuration
type CorpusConfig struct {
	DBPath        string `mapstructure:"db_path"`
	TopK          int    `mapstructure:"top_k"`
	UseEmbeddings bool   `mapstructure:"use_embeddings"`
	SeedOnStart   bool   `mapstructure:"seed_on_start"`
}

// SessionConfig holds intake session lifetime settings
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PipelineConfig holds pipeline execution settings
type PipelineConfig struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// TRIAGE_LLM_API_KEY overrides llm.api_key
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "qwen2.5:7b")
	v.SetDefault("llm.embedding_model", "nomic-embed-text")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("corpus.db_path", "./data/corpus.db")
	v.SetDefault("corpus.top_k", 5)
	v.SetDefault("corpus.use_embeddings", false)
	v.SetDefault("corpus.seed_on_start", true)

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)

	v.SetDefault("pipeline.call_timeout", 60*time.Second)
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if c.Corpus.TopK <= 0 {
		errs = append(errs, fmt.Errorf("corpus.top_k must be positive, got %d", c.Corpus.TopK))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval must be positive, got %s", c.Session.SweepInterval))
	}
	if c.Pipeline.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.call_timeout must be positive, got %s", c.Pipeline.CallTimeout))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	return errors.Join(errs...)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
