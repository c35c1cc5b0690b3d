package audience

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// HTTPChatRequest is the body of POST /chat.
type HTTPChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// HTTPChatResponse is the body returned by /chat and /chat/start.
type HTTPChatResponse struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Stage     string `json:"stage"`
	Done      bool   `json:"done"`
}

// HTTPErrorBody is the error envelope for all error responses.
type HTTPErrorBody struct {
	Error HTTPError `json:"error"`
}

// HTTPError carries a machine-readable code and a human message.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newHealthHandler returns a handler for health check requests.
func newHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// newStartHandler returns a handler for POST /chat/start requests.
func newStartHandler(agent *Agent, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := agent.StartSession(r.Context())
		if err != nil {
			logger.Error("failed to start session", "error", err)
			respondAgentError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, buildChatResponse(result))
	}
}

// newChatHandler returns a handler for POST /chat requests.
func newChatHandler(agent *Agent, maxMessageLength int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var httpReq HTTPChatRequest
		if err := json.NewDecoder(r.Body).Decode(&httpReq); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid request body")
			return
		}

		if httpReq.SessionID == "" {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "sessionId cannot be empty")
			return
		}
		if httpReq.Message == "" {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "Message cannot be empty")
			return
		}
		if len(httpReq.Message) > maxMessageLength {
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodeValidation,
				fmt.Sprintf("Message exceeds maximum length of %d characters", maxMessageLength))
			return
		}

		result, err := agent.HandleTurn(r.Context(), httpReq.SessionID, httpReq.Message)
		if err != nil {
			logger.Error("failed to process turn",
				"sessionId", httpReq.SessionID,
				"error", err,
			)
			respondAgentError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, buildChatResponse(result))
	}
}

func buildChatResponse(result TurnResult) HTTPChatResponse {
	return HTTPChatResponse{
		SessionID: result.SessionID,
		Response:  result.Response,
		Stage:     string(result.Stage),
		Done:      result.Done,
	}
}

// respondAgentError maps service errors to HTTP status codes.
func respondAgentError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeSession, "Session not found or expired")
		return
	}

	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		switch agentErr.Code {
		case ErrCodeValidation:
			respondError(w, http.StatusBadRequest, agentErr.Code, agentErr.Message)
		case ErrCodeSession:
			respondError(w, http.StatusNotFound, agentErr.Code, agentErr.Message)
		default:
			respondError(w, http.StatusInternalServerError, agentErr.Code,
				"An error occurred while processing your message")
		}
		return
	}

	respondError(w, http.StatusInternalServerError, ErrCodeInternal,
		"An error occurred while processing your message")
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, HTTPErrorBody{Error: HTTPError{Code: code, Message: message}})
}

// newRouter creates and configures the Chi router with all middleware and routes.
func newRouter(agent *Agent) *chi.Mux {
	cfg := agent.config
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(recoveryMiddleware(cfg.Logger))
	r.Use(loggingMiddleware(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))
	r.Use(bodySizeLimitMiddleware(cfg.MaxRequestBodySize))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", newHealthHandler())
	r.Post("/chat/start", newStartHandler(agent, cfg.Logger))
	r.Post("/chat", newChatHandler(agent, cfg.MaxMessageLength, cfg.Logger))

	return r
}
