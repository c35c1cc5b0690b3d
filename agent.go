package audience

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// fallbackResponse is returned when the language service fails
// mid-turn. The stage is left unchanged so the turn can be retried.
const fallbackResponse = "Sorry, I ran into a problem processing that. Please try again."

// Agent is the main entry point for the audience builder. It drives
// the dialogue engine one turn at a time and persists state between
// turns.
type Agent struct {
	config   Config
	engine   *Engine
	sessions SessionStore
	locker   SessionLocker
	logger   *slog.Logger
}

// New creates a new agent instance with the given configuration.
func New(cfg Config) (*Agent, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	engine := NewEngine(cfg.LLM, cfg.Catalog, cfg.Prompts, cfg.Logger)

	return &Agent{
		config:   cfg,
		engine:   engine,
		sessions: cfg.Sessions,
		locker:   cfg.Locker,
		logger:   cfg.Logger,
	}, nil
}

// TurnResult is the outcome of a single conversation turn.
type TurnResult struct {
	// SessionID identifies the conversation.
	SessionID string

	// Response is the assistant's reply for this turn.
	Response string

	// Stage is the dialogue stage after the turn.
	Stage Stage

	// Done reports whether the conversation has ended.
	Done bool

	// Duration is the wall time spent on the turn.
	Duration time.Duration
}

// StartSession creates a fresh session, runs the opening of the
// dialogue and returns the session identifier with the greeting.
func (a *Agent) StartSession(ctx context.Context) (TurnResult, error) {
	start := time.Now()

	state := NewState()
	if err := a.engine.Run(ctx, state); err != nil {
		if IsLLMError(err) {
			a.logger.Warn("language service failed on greeting", "error", err)
			state = NewState()
			state.AppendAssistant(fallbackResponse)
			state.CurrentStage = StageGreet
		} else {
			return TurnResult{}, err
		}
	}

	sessionID := NewSessionID()
	if err := a.sessions.Save(ctx, sessionID, state); err != nil {
		return TurnResult{}, fmt.Errorf("failed to save session: %w", err)
	}

	a.logger.Info("session started",
		"sessionId", sessionID,
		"stage", string(state.CurrentStage),
	)

	return TurnResult{
		SessionID: sessionID,
		Response:  state.LastAssistant(),
		Stage:     state.CurrentStage,
		Done:      state.CurrentStage == StageTerminal,
		Duration:  time.Since(start),
	}, nil
}

// HandleTurn processes one user utterance against an existing session.
// Turns on the same session are serialized; the state is loaded,
// advanced through the engine and persisted before the lock is
// released.
//
// When the language service fails mid-turn the pre-turn state is kept,
// extended only with the user's utterance and a static retry reply.
// The stage is left unchanged so the next utterance retries the turn.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, message string) (TurnResult, error) {
	start := time.Now()

	if message == "" {
		return TurnResult{}, NewValidationError("message must not be empty", ErrEmptyMessage)
	}
	if len(message) > a.config.MaxMessageLength {
		return TurnResult{}, NewValidationError(
			fmt.Sprintf("message exceeds %d characters", a.config.MaxMessageLength), nil)
	}

	unlock, err := a.locker.Lock(ctx, sessionID)
	if err != nil {
		return TurnResult{}, NewAgentError(ErrCodeInternal, "failed to lock session", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			a.logger.Warn("failed to release session lock", "sessionId", sessionID, "error", err)
		}
	}()

	state, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	state.AppendUser(message)
	if state.CurrentStage == StageTerminal {
		// A finished conversation restarts at product identification.
		state.CurrentStage = StageIdentifyProduct
	}

	turn := state.Clone()
	if err := a.engine.Run(ctx, turn); err != nil {
		if !IsLLMError(err) {
			return TurnResult{}, err
		}

		a.logger.Warn("language service failed mid-turn",
			"sessionId", sessionID,
			"stage", string(state.CurrentStage),
			"error", err,
		)

		state.AppendAssistant(fallbackResponse)
		if saveErr := a.sessions.Save(ctx, sessionID, state); saveErr != nil {
			return TurnResult{}, fmt.Errorf("failed to save session: %w", saveErr)
		}

		return TurnResult{
			SessionID: sessionID,
			Response:  fallbackResponse,
			Stage:     state.CurrentStage,
			Done:      false,
			Duration:  time.Since(start),
		}, nil
	}

	if err := a.sessions.Save(ctx, sessionID, turn); err != nil {
		return TurnResult{}, fmt.Errorf("failed to save session: %w", err)
	}

	a.logger.Debug("turn completed",
		"sessionId", sessionID,
		"stage", string(turn.CurrentStage),
		"historyLen", len(turn.History),
	)

	return TurnResult{
		SessionID: sessionID,
		Response:  turn.LastAssistant(),
		Stage:     turn.CurrentStage,
		Done:      turn.CurrentStage == StageTerminal,
		Duration:  time.Since(start),
	}, nil
}

// GetSession returns the current state of a session.
func (a *Agent) GetSession(ctx context.Context, sessionID string) (*State, error) {
	return a.sessions.Get(ctx, sessionID)
}

// HTTPHandler returns an http.Handler exposing the agent's chat API.
func (a *Agent) HTTPHandler() http.Handler {
	return newRouter(a)
}
