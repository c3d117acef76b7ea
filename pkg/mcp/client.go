// Package mcp provides the tool gateway over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/estebmaister/supportbot/internal/observability"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

const (
	clientName    = "supportbot"
	clientVersion = "0.1.0"

	// emptyResultText is returned when a tool call succeeds but yields
	// no content. User-visible through the model's second pass.
	emptyResultText = "No content returned"
)

// ToolSchema describes a tool advertised by the MCP server.
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Client connects to a remote MCP server over streamable HTTP. Each call
// opens a fresh session; the tool catalog is fetched once per process and
// never invalidated, on the assumption that the remote catalog is stable.
type Client struct {
	serverURL string

	toolsOnce sync.Once
	tools     []ToolSchema
	schemas   map[string]*gojsonschema.Schema
}

// NewClient creates a new MCP client for the given server URL
func NewClient(serverURL string) *Client {
	observability.EnsureRegistered()

	return &Client{
		serverURL: serverURL,
		schemas:   make(map[string]*gojsonschema.Schema),
	}
}

// connect opens a new session against the MCP server. The caller owns
// the session and must close it.
func (c *Client) connect(ctx context.Context) (*mcpsdk.ClientSession, error) {
	impl := &mcpsdk.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	client := mcpsdk.NewClient(impl, nil)

	transport := &mcpsdk.StreamableClientTransport{
		Endpoint: c.serverURL,
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect to %s: %w", c.serverURL, err)
	}

	return session, nil
}

// Tools returns the tool catalog. The first call fetches it from the
// server; later calls return the cached copy. A failed first fetch
// caches an empty catalog for the rest of the process lifetime.
func (c *Client) Tools(ctx context.Context) []ToolSchema {
	c.toolsOnce.Do(func() {
		tools, err := c.fetchTools(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list MCP tools")
			return
		}
		c.tools = tools
		c.compileSchemas()
		log.Info().Int("count", len(tools)).Msg("Loaded tools from MCP server")
	})
	return c.tools
}

func (c *Client) fetchTools(ctx context.Context) ([]ToolSchema, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var tools []ToolSchema
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcp list tools: %w", err)
		}

		schema := map[string]interface{}{"type": "object"}
		if tool.InputSchema != nil {
			if data, err := json.Marshal(tool.InputSchema); err == nil {
				var m map[string]interface{}
				if err := json.Unmarshal(data, &m); err == nil {
					schema = m
				}
			}
		}

		tools = append(tools, ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	return tools, nil
}

// compileSchemas prepares validators for the advertised input schemas.
// Tools whose schemas do not compile are simply not validated.
func (c *Client) compileSchemas() {
	for _, tool := range c.tools {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
		if err != nil {
			log.Warn().Str("tool", tool.Name).Err(err).Msg("Tool schema did not compile")
			continue
		}
		c.schemas[tool.Name] = schema
	}
}

// validateArguments checks tool arguments against the advertised schema.
// Violations are logged only: the remote tool is the final authority.
func (c *Client) validateArguments(name string, arguments map[string]interface{}) {
	schema, ok := c.schemas[name]
	if !ok {
		return
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(arguments))
	if err != nil || result.Valid() {
		return
	}

	reasons := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		reasons = append(reasons, desc.String())
	}
	log.Warn().
		Str("tool", name).
		Str("violations", strings.Join(reasons, "; ")).
		Msg("Tool arguments do not match advertised schema")
}

// Invoke executes one tool call. Failures never surface as errors: the
// returned text is an error marker the model can recover from.
func (c *Client) Invoke(ctx context.Context, name string, arguments map[string]interface{}) string {
	start := time.Now()

	c.validateArguments(name, arguments)

	session, err := c.connect(ctx)
	if err != nil {
		observability.RecordToolExecution(name, time.Since(start), false)
		log.Error().Str("tool", name).Err(err).Msg("Tool call failed")
		return fmt.Sprintf("Error: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		observability.RecordToolExecution(name, time.Since(start), false)
		log.Error().Str("tool", name).Err(err).Msg("Tool call failed")
		return fmt.Sprintf("Error: %v", err)
	}

	text := textContent(result)

	if result.IsError {
		observability.RecordToolExecution(name, time.Since(start), false)
		log.Error().Str("tool", name).Str("result", text).Msg("Tool returned an error")
		if text == "" {
			text = fmt.Sprintf("tool %s failed", name)
		}
		return fmt.Sprintf("Error: %s", text)
	}

	observability.RecordToolExecution(name, time.Since(start), true)

	if text == "" {
		return emptyResultText
	}
	return text
}

// textContent extracts the text blocks from a tool result.
func textContent(result *mcpsdk.CallToolResult) string {
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	return text
}

// HealthCheck reports whether the MCP server is reachable.
func (c *Client) HealthCheck(ctx context.Context) bool {
	session, err := c.connect(ctx)
	if err != nil {
		log.Error().Err(err).Msg("MCP health check failed")
		return false
	}
	defer session.Close()
	return true
}
