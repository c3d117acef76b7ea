package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/estebmaister/supportbot/internal/tracing"
	"github.com/estebmaister/supportbot/pkg/agent"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message      string `json:"message"`
	Remember     bool   `json:"remember,omitempty"`
	ClearHistory bool   `json:"clear_history,omitempty"`
}

// HealthResponse is the body of GET /ping.
type HealthResponse struct {
	Status        string `json:"status"`
	MCPConnected  bool   `json:"mcp_connected"`
	LLMConfigured bool   `json:"llm_configured"`
}

// WelcomeResponse carries the chat UI greeting strings.
type WelcomeResponse struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Features string `json:"features"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	identity := clientIdentity(r)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	result, err := s.dispatcher(ctx, agent.Request{
		Message:      req.Message,
		UserID:       identity,
		Remember:     req.Remember,
		ClearHistory: req.ClearHistory,
	})
	if err != nil {
		logger.Error().Err(err).Str("identity", identity).Msg("Chat request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		MCPConnected:  s.tools.HealthCheck(r.Context()),
		LLMConfigured: s.model.Configured(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, WelcomeResponse{
		Title:    s.prompts.WelcomeTitle(),
		Subtitle: s.prompts.WelcomeSubtitle(),
		Features: s.prompts.WelcomeFeatures(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := os.ReadFile(filepath.Join(s.staticDir, "index.html"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "chat UI not found")
			return
		}
		logger := tracing.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("Failed to read chat UI page")
		writeError(w, http.StatusInternalServerError, "failed to load chat UI")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
