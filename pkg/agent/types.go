package agent

// Request is one inbound chat turn. UserID is the caller identity used
// as the session key; it is supplied by the transport layer and trusted
// as-is.
type Request struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	Remember     bool   `json:"remember,omitempty"`
	ClearHistory bool   `json:"clear_history,omitempty"`
}

// ToolCallRecord describes one tool invocation made while serving a
// request. Records are returned for observability and never stored in
// the conversation.
type ToolCallRecord struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Result is the reply for one chat turn.
type Result struct {
	Response  string           `json:"response"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}
