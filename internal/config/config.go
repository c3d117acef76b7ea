package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main supportbot configuration
type Config struct {
	// LLM provider settings
	LLM LLMConfig `json:"llm" mapstructure:"llm"`

	// MCP tool server settings
	MCP MCPConfig `json:"mcp" mapstructure:"mcp"`

	// HTTP server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Conversation store settings
	Conversations ConversationsConfig `json:"conversations" mapstructure:"conversations"`

	// Prompt resources
	Prompts PromptsConfig `json:"prompts" mapstructure:"prompts"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LLMConfig holds language model provider configuration
type LLMConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// MCPConfig holds MCP tool server configuration
type MCPConfig struct {
	ServerURL string `json:"server_url" mapstructure:"server_url"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	StaticDir string `json:"static_dir" mapstructure:"static_dir"`
}

// ConversationsConfig holds conversation store configuration
type ConversationsConfig struct {
	Max                 int `json:"max" mapstructure:"max"`
	Capacity            int `json:"capacity" mapstructure:"capacity"`
	StaleTimeoutMinutes int `json:"stale_timeout_minutes" mapstructure:"stale_timeout_minutes"`
	HistoryWindow       int `json:"history_window" mapstructure:"history_window"`
}

// PromptsConfig holds prompt resource configuration
type PromptsConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "openai/gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   700,
		},
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8000,
			StaticDir: "static",
		},
		Conversations: ConversationsConfig{
			Max:                 1000,
			Capacity:            50,
			StaleTimeoutMinutes: 30,
			HistoryWindow:       10,
		},
		Prompts: PromptsConfig{
			Dir: "prompts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := ValidateProvider(c.LLM.Provider); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required")
	}
	if err := ValidateModel(c.LLM.Model); err != nil {
		return err
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if err := ValidateServerURL(c.MCP.ServerURL); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Conversations.Max <= 0 {
		return fmt.Errorf("conversations max must be positive")
	}
	if c.Conversations.Capacity <= 0 {
		return fmt.Errorf("conversation capacity must be positive")
	}
	if c.Conversations.StaleTimeoutMinutes <= 0 {
		return fmt.Errorf("stale timeout must be positive")
	}
	if c.Conversations.HistoryWindow <= 0 {
		return fmt.Errorf("history window must be positive")
	}
	return nil
}

// String returns a JSON representation with the API key redacted
func (c *Config) String() string {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "***"
	}
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
