package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/estebmaister/supportbot/pkg/llm"
	"github.com/estebmaister/supportbot/pkg/mcp"
	"github.com/estebmaister/supportbot/pkg/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays scripted responses and records every request
type fakeModel struct {
	responses []*llm.Response
	err       error
	requests  []llm.Request
}

func (m *fakeModel) Complete(_ context.Context, request llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, request)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.requests) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *fakeModel) Name() string { return "fake" }

// fakeTools serves a fixed catalog and records invocations
type fakeTools struct {
	catalog     []mcp.ToolSchema
	results     map[string]string
	invocations []invocation
}

type invocation struct {
	name      string
	arguments map[string]interface{}
}

func (tg *fakeTools) Tools(_ context.Context) []mcp.ToolSchema {
	return tg.catalog
}

func (tg *fakeTools) Invoke(_ context.Context, name string, arguments map[string]interface{}) string {
	tg.invocations = append(tg.invocations, invocation{name: name, arguments: arguments})
	if result, ok := tg.results[name]; ok {
		return result
	}
	return "No content returned"
}

func textResponse(content string) *llm.Response {
	return &llm.Response{Content: content}
}

func toolResponse(calls ...llm.ToolCall) *llm.Response {
	return &llm.Response{ToolCalls: calls}
}

func newTestAgent(t *testing.T, model *fakeModel, tools *fakeTools) (*Agent, *session.Store) {
	t.Helper()
	store := session.New(session.Config{})
	a, err := New(Config{
		Store:        store,
		Model:        model,
		Tools:        tools,
		SystemPrompt: "You are a helpful customer support agent.",
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return a, store
}

func searchCatalog() []mcp.ToolSchema {
	return []mcp.ToolSchema{{
		Name:        "search_products",
		Description: "Search by name/description",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
		},
	}}
}

func TestNew_Validation(t *testing.T) {
	store := session.New(session.Config{})
	model := &fakeModel{responses: []*llm.Response{textResponse("ok")}}
	tools := &fakeTools{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing store", Config{Model: model, Tools: tools, SystemPrompt: "p"}},
		{"missing model", Config{Store: store, Tools: tools, SystemPrompt: "p"}},
		{"missing tools", Config{Store: store, Model: model, SystemPrompt: "p"}},
		{"missing prompt", Config{Store: store, Model: model, Tools: tools}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestChat_PlainTextResponse(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("We sell three monitor models.")}}
	tools := &fakeTools{catalog: searchCatalog()}
	a, store := newTestAgent(t, model, tools)

	result, err := a.Chat(context.Background(), Request{
		Message: "What monitors do you have?",
		UserID:  "203.0.113.9",
	})
	require.NoError(t, err)

	assert.Equal(t, "We sell three monitor models.", result.Response)
	assert.Empty(t, result.ToolCalls)
	assert.Len(t, model.requests, 1)
	assert.Empty(t, tools.invocations)

	// Conversation holds exactly the user turn and the assistant reply
	history := store.History("203.0.113.9", 0, true)
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, "What monitors do you have?", history[0].Content)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, "We sell three monitor models.", history[1].Content)
}

func TestChat_FirstCallCarriesSystemPromptAndTools(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("hi")}}
	tools := &fakeTools{catalog: searchCatalog()}
	a, _ := newTestAgent(t, model, tools)

	_, err := a.Chat(context.Background(), Request{Message: "hello", UserID: "c"})
	require.NoError(t, err)

	require.Len(t, model.requests, 1)
	first := model.requests[0]
	require.NotEmpty(t, first.Messages)
	assert.Equal(t, session.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, "You are a helpful customer support agent.", first.Messages[0].Content)
	assert.Equal(t, session.RoleUser, first.Messages[len(first.Messages)-1].Role)
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "search_products", first.Tools[0].Name)
}

func TestChat_SingleToolCall(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(llm.ToolCall{ID: "call_1", Name: "search_products", Arguments: `{"query":"monitor"}`}),
		textResponse("I found the UltraSharp 27."),
	}}
	tools := &fakeTools{
		catalog: searchCatalog(),
		results: map[string]string{"search_products": "UltraSharp 27, $299, in stock"},
	}
	a, store := newTestAgent(t, model, tools)

	result, err := a.Chat(context.Background(), Request{Message: "find monitors", UserID: "c"})
	require.NoError(t, err)

	// Exactly one invocation with the exact arguments, then one second pass
	require.Len(t, tools.invocations, 1)
	assert.Equal(t, "search_products", tools.invocations[0].name)
	assert.Equal(t, map[string]interface{}{"query": "monitor"}, tools.invocations[0].arguments)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "search_products", result.ToolCalls[0].Name)
	assert.Equal(t, map[string]interface{}{"query": "monitor"}, result.ToolCalls[0].Arguments)

	assert.Equal(t, "I found the UltraSharp 27.", result.Response)
	require.Len(t, model.requests, 2)

	// Second pass sees announcement and tool result, in order
	second := model.requests[1]
	n := len(second.Messages)
	require.GreaterOrEqual(t, n, 3)
	announcement := second.Messages[n-2]
	toolTurn := second.Messages[n-1]
	assert.Equal(t, session.RoleAssistant, announcement.Role)
	require.Len(t, announcement.ToolCalls, 1)
	assert.Equal(t, "call_1", announcement.ToolCalls[0].ID)
	assert.Equal(t, session.RoleTool, toolTurn.Role)
	assert.Equal(t, "call_1", toolTurn.ToolCallID)
	assert.Equal(t, "UltraSharp 27, $299, in stock", toolTurn.Content)

	// The announcement and tool turns never reach the stored conversation
	history := store.History("c", 0, true)
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
}

func TestChat_MultipleToolCallsInOrder(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(
			llm.ToolCall{ID: "call_1", Name: "get_customer", Arguments: `{"customer_id":"c-9"}`},
			llm.ToolCall{ID: "call_2", Name: "list_orders", Arguments: `{"customer_id":"c-9"}`},
		),
		textResponse("Your last order shipped yesterday."),
	}}
	tools := &fakeTools{results: map[string]string{
		"get_customer": "Jordan, verified",
		"list_orders":  "order #42, shipped",
	}}
	a, _ := newTestAgent(t, model, tools)

	result, err := a.Chat(context.Background(), Request{Message: "where is my order", UserID: "c"})
	require.NoError(t, err)

	require.Len(t, tools.invocations, 2)
	assert.Equal(t, "get_customer", tools.invocations[0].name)
	assert.Equal(t, "list_orders", tools.invocations[1].name)

	require.Len(t, result.ToolCalls, 2)
	assert.Equal(t, "get_customer", result.ToolCalls[0].Name)
	assert.Equal(t, "list_orders", result.ToolCalls[1].Name)
}

func TestChat_ClearHistory(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("Fresh start!")}}
	a, store := newTestAgent(t, model, &fakeTools{})

	for i := 0; i < 5; i++ {
		store.Append("c", session.RoleUser, fmt.Sprintf("old %d", i))
	}

	result, err := a.Chat(context.Background(), Request{
		Message:      "hello again",
		UserID:       "c",
		ClearHistory: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fresh start!", result.Response)

	history := store.History("c", 0, true)
	require.Len(t, history, 2)
	assert.Equal(t, "hello again", history[0].Content)
	assert.Equal(t, "Fresh start!", history[1].Content)
}

func TestChat_ClearHistoryOnNewIdentity(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("hi")}}
	a, _ := newTestAgent(t, model, &fakeTools{})

	// Clearing a nonexistent conversation is not an error
	_, err := a.Chat(context.Background(), Request{
		Message:      "hello",
		UserID:       "brand-new",
		ClearHistory: true,
	})
	assert.NoError(t, err)
}

func TestChat_ToolFailureDoesNotAbort(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(llm.ToolCall{ID: "call_1", Name: "get_order", Arguments: `{"order_id":"42"}`}),
		textResponse("I couldn't reach the order system, sorry."),
	}}
	tools := &fakeTools{results: map[string]string{
		"get_order": "Error: connection refused",
	}}
	a, _ := newTestAgent(t, model, tools)

	result, err := a.Chat(context.Background(), Request{Message: "check order 42", UserID: "c"})
	require.NoError(t, err)

	// The record is still produced and the second pass saw the marker
	require.Len(t, result.ToolCalls, 1)
	second := model.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, session.RoleTool, last.Role)
	assert.Equal(t, "Error: connection refused", last.Content)
	assert.Equal(t, "I couldn't reach the order system, sorry.", result.Response)
}

func TestChat_MalformedToolArgumentsDegradeToEmpty(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(llm.ToolCall{ID: "call_1", Name: "search_products", Arguments: `{"query":`}),
		textResponse("done"),
	}}
	tools := &fakeTools{}
	a, _ := newTestAgent(t, model, tools)

	result, err := a.Chat(context.Background(), Request{Message: "search", UserID: "c"})
	require.NoError(t, err)

	require.Len(t, tools.invocations, 1)
	assert.Empty(t, tools.invocations[0].arguments)
	require.Len(t, result.ToolCalls, 1)
	assert.Empty(t, result.ToolCalls[0].Arguments)
}

func TestChat_DefaultWindowLimitsHistory(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("ok")}}
	a, store := newTestAgent(t, model, &fakeTools{})

	for i := 0; i < 30; i++ {
		store.Append("c", session.RoleUser, fmt.Sprintf("old %d", i))
	}

	_, err := a.Chat(context.Background(), Request{Message: "latest question", UserID: "c"})
	require.NoError(t, err)

	// System prompt plus at most the default window of 10
	first := model.requests[0]
	assert.Len(t, first.Messages, 11)
	assert.Equal(t, "latest question", first.Messages[10].Content)
}

func TestChat_RememberWordUsesFullHistory(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("ok")}}
	a, store := newTestAgent(t, model, &fakeTools{})

	for i := 0; i < 30; i++ {
		store.Append("c", session.RoleUser, fmt.Sprintf("old %d", i))
	}

	_, err := a.Chat(context.Background(), Request{
		Message: "Remember what I asked before?",
		UserID:  "c",
	})
	require.NoError(t, err)

	// All 31 stored turns plus the system prompt
	assert.Len(t, model.requests[0].Messages, 32)
}

func TestChat_RememberFlagUsesFullHistory(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("ok")}}
	a, store := newTestAgent(t, model, &fakeTools{})

	for i := 0; i < 20; i++ {
		store.Append("c", session.RoleUser, fmt.Sprintf("old %d", i))
	}

	_, err := a.Chat(context.Background(), Request{
		Message:  "what did I order?",
		UserID:   "c",
		Remember: true,
	})
	require.NoError(t, err)

	assert.Len(t, model.requests[0].Messages, 22)
}

func TestChat_EmptyModelContentUsesFallback(t *testing.T) {
	t.Run("direct response", func(t *testing.T) {
		model := &fakeModel{responses: []*llm.Response{textResponse("")}}
		a, _ := newTestAgent(t, model, &fakeTools{})

		result, err := a.Chat(context.Background(), Request{Message: "hello", UserID: "c"})
		require.NoError(t, err)
		assert.Equal(t, "I apologize, but I couldn't generate a response.", result.Response)
	})

	t.Run("after tool calls", func(t *testing.T) {
		model := &fakeModel{responses: []*llm.Response{
			toolResponse(llm.ToolCall{ID: "call_1", Name: "list_products", Arguments: `{}`}),
			textResponse(""),
		}}
		a, _ := newTestAgent(t, model, &fakeTools{})

		result, err := a.Chat(context.Background(), Request{Message: "hello", UserID: "c"})
		require.NoError(t, err)
		assert.Equal(t, "I apologize, but I couldn't generate a response.", result.Response)
	})
}

func TestChat_ModelFailureAbortsRequest(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("upstream unavailable")}
	a, store := newTestAgent(t, model, &fakeTools{})

	_, err := a.Chat(context.Background(), Request{Message: "hello", UserID: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")

	// The user turn was persisted before the failure; no assistant turn
	history := store.History("c", 0, true)
	require.Len(t, history, 1)
	assert.Equal(t, session.RoleUser, history[0].Role)
}

func TestChat_InputValidation(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("ok")}}
	a, _ := newTestAgent(t, model, &fakeTools{})

	_, err := a.Chat(context.Background(), Request{UserID: "c"})
	assert.Error(t, err)

	_, err = a.Chat(context.Background(), Request{Message: "hello"})
	assert.Error(t, err)
}

func TestChat_EmptyToolResultPassedThrough(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(llm.ToolCall{ID: "call_1", Name: "list_products", Arguments: `{}`}),
		textResponse("There are no products."),
	}}
	// fakeTools returns the "No content returned" marker for unknown tools
	tools := &fakeTools{}
	a, _ := newTestAgent(t, model, tools)

	_, err := a.Chat(context.Background(), Request{Message: "list products", UserID: "c"})
	require.NoError(t, err)

	second := model.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, "No content returned", last.Content)
}
