package audience

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// stageFunc executes one stage: it may append an assistant utterance
// and set state fields, and returns the next stage to execute.
type stageFunc func(ctx context.Context, state *State) (Stage, error)

// stageAwaitsInput marks stages that consume a fresh user utterance.
// The driver will not enter such a stage unless the newest history
// entry is from the user.
var stageAwaitsInput = map[Stage]bool{
	StageIdentifyProduct: true,
}

// Engine is the dialogue state machine driver. It owns one language
// client handle and one catalog handle for its lifetime; stages never
// reach for globals.
type Engine struct {
	llm     *LanguageClient
	catalog catalog.Lookup
	prompts Prompts
	logger  *slog.Logger
	stages  map[Stage]stageFunc
}

// NewEngine creates a dialogue engine.
func NewEngine(llm *LanguageClient, lookup catalog.Lookup, prompts Prompts, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		llm:     llm,
		catalog: lookup,
		prompts: prompts.withDefaults(),
		logger:  logger,
	}

	e.stages = map[Stage]stageFunc{
		StageGreet:           e.greet,
		StageIdentifyProduct: e.identifyProduct,
		StageLookupProduct:   e.lookupProduct,
		StageFormatResults:   e.formatResults,
	}

	return e
}

// Run drives the state machine forward from state.CurrentStage until it
// reaches a stage that must wait for fresh user input, or the terminal
// stage. The state is mutated in place; on error it may hold partial
// stage output and must not be persisted by the caller.
//
// A stage transitioning to itself always means "wait for input", so the
// driver cannot loop indefinitely: every iteration either advances to a
// new stage or returns.
func (e *Engine) Run(ctx context.Context, state *State) error {
	for {
		stage := state.CurrentStage
		if stage == StageTerminal {
			return nil
		}

		fn, ok := e.stages[stage]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
		}

		if stageAwaitsInput[stage] && state.awaitingInput() {
			return nil
		}

		e.logger.Debug("executing stage",
			slog.String("stage", string(stage)),
			slog.Int("history_len", len(state.History)),
		)

		next, err := fn(ctx, state)
		if err != nil {
			return err
		}
		if !next.Valid() {
			return fmt.Errorf("%w: stage %q transitioned to %q", ErrUnknownStage, stage, next)
		}

		state.CurrentStage = next
		if next == stage {
			// Self-loop: the stage re-prompted and waits for input.
			return nil
		}
	}
}
