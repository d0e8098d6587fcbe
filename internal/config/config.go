package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Agent    AgentConfig    `json:"agent"`
	Chat     ChatConfig     `json:"chat"`
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	CORSOrigins string `json:"cors_origins" mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// AgentConfig describes the remote reasoning agent the chat flow invokes.
type AgentConfig struct {
	APIKey         string        `json:"api_key" mapstructure:"api_key"`
	BaseURL        string        `json:"base_url,omitempty" mapstructure:"base_url"`
	AssistantID    string        `json:"assistant_id" mapstructure:"assistant_id"`
	Model          string        `json:"model"`
	PollInterval   time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// ChatConfig tunes the conversation-context manager.
type ChatConfig struct {
	// ContextTokenBudget bounds the history window sent to the agent.
	ContextTokenBudget int `json:"context_token_budget" mapstructure:"context_token_budget"`
	// TokenDivisor is the chars-per-token divisor of the heuristic estimator.
	TokenDivisor int `json:"token_divisor" mapstructure:"token_divisor"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".conversa"))
	}

	// Set defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "conversa")
	viper.SetDefault("database.database", "conversa")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("agent.model", "gpt-4o-mini")
	viper.SetDefault("agent.poll_interval", "500ms")
	viper.SetDefault("agent.request_timeout", "60s")
	viper.SetDefault("chat.context_token_budget", 4000)
	viper.SetDefault("chat.token_divisor", 4)

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Missing config file is fine; defaults plus env cover it.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func loadEnvOverrides(cfg *Config) {
	if host := os.Getenv("CONVERSA_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CONVERSA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if origins := os.Getenv("CONVERSA_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// Agent overrides
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Agent.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.Agent.BaseURL = baseURL
	}
	if assistantID := os.Getenv("CONVERSA_ASSISTANT_ID"); assistantID != "" {
		cfg.Agent.AssistantID = assistantID
	}
	if model := os.Getenv("CONVERSA_AGENT_MODEL"); model != "" {
		cfg.Agent.Model = model
	}

	if budget := os.Getenv("CONVERSA_CONTEXT_BUDGET"); budget != "" {
		if b, err := strconv.Atoi(budget); err == nil {
			cfg.Chat.ContextTokenBudget = b
		}
	}
}
