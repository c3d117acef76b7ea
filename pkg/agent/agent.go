package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/estebmaister/supportbot/internal/observability"
	"github.com/estebmaister/supportbot/internal/tracing"
	"github.com/estebmaister/supportbot/pkg/llm"
	"github.com/estebmaister/supportbot/pkg/mcp"
	"github.com/estebmaister/supportbot/pkg/session"
	"github.com/rs/zerolog"
)

// fallbackResponse is returned when the model produces no content.
// User-visible, not an internal error.
const fallbackResponse = "I apologize, but I couldn't generate a response."

// defaultHistoryWindow bounds the history replayed on ordinary turns.
const defaultHistoryWindow = 10

// ModelGateway is the boundary over the remote chat-completion call.
type ModelGateway interface {
	Complete(ctx context.Context, request llm.Request) (*llm.Response, error)
	Name() string
}

// ToolGateway is the boundary over remote tool discovery and execution.
type ToolGateway interface {
	Tools(ctx context.Context) []mcp.ToolSchema
	Invoke(ctx context.Context, name string, arguments map[string]interface{}) string
}

// Agent runs the orchestration loop for chat requests
type Agent struct {
	store         *session.Store
	model         ModelGateway
	tools         ToolGateway
	systemPrompt  string
	historyWindow int
	logger        zerolog.Logger
}

// Config holds agent configuration
type Config struct {
	Store         *session.Store
	Model         ModelGateway
	Tools         ToolGateway
	SystemPrompt  string
	HistoryWindow int
	Logger        zerolog.Logger
}

// New creates a new agent
func New(cfg Config) (*Agent, error) {
	observability.EnsureRegistered()

	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model gateway is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool gateway is required")
	}
	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}

	return &Agent{
		store:         cfg.Store,
		model:         cfg.Model,
		tools:         cfg.Tools,
		systemPrompt:  cfg.SystemPrompt,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger,
	}, nil
}

// Chat processes one user message and returns the agent's reply. A model
// failure aborts the request; tool failures are folded into the
// conversation as error text and never abort.
func (a *Agent) Chat(ctx context.Context, req Request) (Result, error) {
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithSessionKey(ctx, req.UserID)
	logger := tracing.LoggerFromContext(ctx, a.logger)

	start := time.Now()

	if req.Message == "" {
		return Result{}, fmt.Errorf("message cannot be empty")
	}
	if req.UserID == "" {
		return Result{}, fmt.Errorf("user identifier cannot be empty")
	}

	// Clearing a nonexistent conversation is not an error
	if req.ClearHistory {
		existed := a.store.Delete(req.UserID)
		logger.Info().Bool("existed", existed).Msg("Cleared conversation history")
	}
	a.store.GetOrCreate(req.UserID)
	a.store.Append(req.UserID, session.RoleUser, req.Message)

	useFullHistory := req.Remember || wantsFullHistory(req.Message)
	history := a.store.History(req.UserID, a.historyWindow, useFullHistory)

	// The window already ends with the just-appended user turn
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: session.RoleSystem, Content: a.systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	tools := a.toolDefinitions(ctx)

	first, err := a.complete(ctx, llm.Request{Messages: messages, Tools: tools})
	if err != nil {
		observability.RecordChat(time.Since(start), false)
		logger.Error().Err(err).Msg("First model call failed")
		return Result{}, fmt.Errorf("generation failed: %w", err)
	}

	// No tool calls, return direct response
	if len(first.ToolCalls) == 0 {
		response := first.Content
		if response == "" {
			response = fallbackResponse
		}
		a.store.Append(req.UserID, session.RoleAssistant, response)
		observability.RecordChat(time.Since(start), true)
		return Result{Response: response}, nil
	}

	// The tool-call announcement joins the working context only; the
	// stored conversation keeps plain user/assistant text.
	working := make([]llm.Message, len(messages), len(messages)+1+len(first.ToolCalls))
	copy(working, messages)
	working = append(working, llm.Message{
		Role:      session.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})

	records := make([]ToolCallRecord, 0, len(first.ToolCalls))
	for _, call := range first.ToolCalls {
		arguments := parseArguments(logger, call)

		logger.Info().
			Str("tool", call.Name).
			Interface("arguments", arguments).
			Msg("Executing tool")

		// Strictly sequential: later calls may depend on earlier results
		result := a.tools.Invoke(ctx, call.Name, arguments)

		records = append(records, ToolCallRecord{
			Name:      call.Name,
			Arguments: arguments,
		})
		working = append(working, llm.Message{
			Role:       session.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	second, err := a.complete(ctx, llm.Request{Messages: working, Tools: tools})
	if err != nil {
		observability.RecordChat(time.Since(start), false)
		logger.Error().Err(err).Msg("Second model call failed")
		return Result{}, fmt.Errorf("generation failed: %w", err)
	}

	response := second.Content
	if response == "" {
		response = fallbackResponse
	}
	a.store.Append(req.UserID, session.RoleAssistant, response)

	observability.RecordChat(time.Since(start), true)
	return Result{Response: response, ToolCalls: records}, nil
}

// complete makes one model call and records its metrics
func (a *Agent) complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	start := time.Now()
	response, err := a.model.Complete(ctx, request)
	observability.RecordModelCall(a.model.Name(), time.Since(start), err == nil)
	return response, err
}

// toolDefinitions converts the discovered tool catalog for the model
func (a *Agent) toolDefinitions(ctx context.Context) []llm.Tool {
	schemas := a.tools.Tools(ctx)
	if len(schemas) == 0 {
		return nil
	}

	tools := make([]llm.Tool, 0, len(schemas))
	for _, schema := range schemas {
		tools = append(tools, llm.Tool{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: schema.InputSchema,
		})
	}
	return tools
}

// parseArguments decodes a model-supplied argument payload. Malformed
// payloads degrade to an empty argument set.
func parseArguments(logger zerolog.Logger, call llm.ToolCall) map[string]interface{} {
	arguments := map[string]interface{}{}
	if call.Arguments == "" {
		return arguments
	}
	if err := json.Unmarshal([]byte(call.Arguments), &arguments); err != nil {
		logger.Warn().
			Str("tool", call.Name).
			Err(err).
			Msg("Malformed tool arguments, using empty set")
		return map[string]interface{}{}
	}
	return arguments
}
