package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateProvider checks that the provider name is supported
func ValidateProvider(provider string) error {
	switch provider {
	case "openai", "anthropic":
		return nil
	case "":
		return fmt.Errorf("llm provider cannot be empty")
	default:
		return fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// ValidateModel validates a model name
func ValidateModel(model string) error {
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if strings.ContainsAny(model, " \t\n") {
		return fmt.Errorf("model name cannot contain whitespace")
	}
	return nil
}

// ValidateServerURL validates the MCP server URL
func ValidateServerURL(serverURL string) error {
	if serverURL == "" {
		return fmt.Errorf("mcp server url is required")
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid mcp server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("mcp server url must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("mcp server url must include a host")
	}

	return nil
}
