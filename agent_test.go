package audience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestAgent(t *testing.T, llm *mockLLM) *Agent {
	t.Helper()
	agent, err := New(Config{
		LLM:     llm.client(),
		Catalog: testCatalog(),
	})
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	return agent
}

func TestNewAgent(t *testing.T) {
	t.Run("creates agent with valid config", func(t *testing.T) {
		agent, err := New(Config{
			LLM:     (&mockLLM{}).client(),
			Catalog: testCatalog(),
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if agent == nil {
			t.Fatal("expected agent to be created")
		}
	})

	t.Run("returns error without LLM client", func(t *testing.T) {
		_, err := New(Config{Catalog: testCatalog()})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("returns error without catalog", func(t *testing.T) {
		_, err := New(Config{LLM: (&mockLLM{}).client()})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a greeting and a fresh session", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{})

		result, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.SessionID == "" {
			t.Error("expected a session id")
		}
		if result.Response == "" {
			t.Error("expected a greeting")
		}
		if result.Done {
			t.Error("expected conversation to be open")
		}
		if result.Stage != StageIdentifyProduct {
			t.Errorf("expected stage %q, got %q", StageIdentifyProduct, result.Stage)
		}
	})

	t.Run("distinct sessions are independent", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{extraction: productExtraction{Mentioned: true, ProductName: "Trail Runner 5"}})

		a, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		b, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if a.SessionID == b.SessionID {
			t.Fatal("expected distinct session ids")
		}

		// Advancing one session leaves the other untouched.
		if _, err := agent.HandleTurn(ctx, a.SessionID, "Trail Runner 5"); err != nil {
			t.Fatalf("turn failed: %v", err)
		}

		stateA, err := agent.GetSession(ctx, a.SessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		stateB, err := agent.GetSession(ctx, b.SessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}

		if stateA.CurrentStage != StageTerminal {
			t.Errorf("expected session A at terminal, got %q", stateA.CurrentStage)
		}
		if stateB.CurrentStage != StageIdentifyProduct {
			t.Errorf("expected session B untouched, got %q", stateB.CurrentStage)
		}
		if stateB.ProductName != "" {
			t.Errorf("expected session B without product, got %q", stateB.ProductName)
		}
	})
}

func TestHandleTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty message", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{})
		_, err := agent.HandleTurn(ctx, "some-session", "")
		if err == nil {
			t.Fatal("expected error")
		}
		var agentErr *AgentError
		if !errors.As(err, &agentErr) || agentErr.Code != ErrCodeValidation {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("rejects oversized message", func(t *testing.T) {
		agent, err := New(Config{
			LLM:              (&mockLLM{}).client(),
			Catalog:          testCatalog(),
			MaxMessageLength: 10,
		})
		if err != nil {
			t.Fatalf("failed to create agent: %v", err)
		}

		_, err = agent.HandleTurn(ctx, "some-session", "this message is far too long")
		var agentErr *AgentError
		if !errors.As(err, &agentErr) || agentErr.Code != ErrCodeValidation {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("unknown session returns not found", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{})
		_, err := agent.HandleTurn(ctx, "no-such-session", "hello")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got: %v", err)
		}
	})

	t.Run("happy path runs to done", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{extraction: productExtraction{Mentioned: true, ProductName: "Trail Runner 5"}})

		start, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		result, err := agent.HandleTurn(ctx, start.SessionID, "audiences for Trail Runner 5")
		if err != nil {
			t.Fatalf("turn failed: %v", err)
		}
		if !result.Done {
			t.Error("expected conversation to be done")
		}
		if result.Stage != StageTerminal {
			t.Errorf("expected terminal stage, got %q", result.Stage)
		}
		if result.Response == "" {
			t.Error("expected a response")
		}
	})

	t.Run("finished conversation restarts on a new utterance", func(t *testing.T) {
		agent := newTestAgent(t, &mockLLM{extraction: productExtraction{Mentioned: true, ProductName: "Trail Runner 5"}})

		start, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if _, err := agent.HandleTurn(ctx, start.SessionID, "Trail Runner 5"); err != nil {
			t.Fatalf("turn failed: %v", err)
		}

		result, err := agent.HandleTurn(ctx, start.SessionID, "now Trail Jacket")
		if err != nil {
			t.Fatalf("turn after terminal failed: %v", err)
		}
		if result.Stage != StageTerminal {
			t.Errorf("expected restarted conversation to complete, got %q", result.Stage)
		}

		state, err := agent.GetSession(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		// History from the first run is preserved across the restart.
		if len(state.History) < 5 {
			t.Errorf("expected accumulated history, got %d entries", len(state.History))
		}
	})

	t.Run("language failure keeps pre-turn state and stage", func(t *testing.T) {
		llm := &mockLLM{extraction: productExtraction{Mentioned: true, ProductName: "Trail Runner 5"}}
		agent := newTestAgent(t, llm)

		start, err := agent.StartSession(ctx)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		llm.chatErr = errors.New("rate limited")
		result, err := agent.HandleTurn(ctx, start.SessionID, "Trail Runner 5")
		if err != nil {
			t.Fatalf("expected fallback, got error: %v", err)
		}
		if result.Response != fallbackResponse {
			t.Errorf("expected fallback response, got %q", result.Response)
		}
		if result.Stage != StageIdentifyProduct {
			t.Errorf("expected stage unchanged, got %q", result.Stage)
		}

		state, err := agent.GetSession(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if state.CurrentStage != StageIdentifyProduct {
			t.Errorf("expected persisted stage unchanged, got %q", state.CurrentStage)
		}
		if state.ProductName != "" {
			t.Errorf("expected no partial stage output persisted, got product %q", state.ProductName)
		}
		// Greeting, user utterance, fallback reply.
		if len(state.History) != 3 {
			t.Errorf("expected 3 history entries, got %d", len(state.History))
		}

		// The turn is retryable once the service recovers.
		llm.chatErr = nil
		retry, err := agent.HandleTurn(ctx, start.SessionID, "Trail Runner 5")
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if retry.Stage != StageTerminal {
			t.Errorf("expected retry to complete, got %q", retry.Stage)
		}
	})
}

func TestMemorySessionStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(10 * time.Millisecond)

	state := NewState()
	state.AppendAssistant("hello")
	if err := store.Save(ctx, "sess", state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Get(ctx, "sess")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(got.History))
	}

	// The store hands out copies, not shared state.
	got.AppendUser("mutation")
	again, err := store.Get(ctx, "sess")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(again.History) != 1 {
		t.Error("expected stored state to be isolated from caller mutation")
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := store.Get(ctx, "sess"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after TTL, got: %v", err)
	}
}
