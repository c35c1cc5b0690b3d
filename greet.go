package audience

import "context"

// greet opens the conversation with a generated greeting and hands off
// to product identification.
func (e *Engine) greet(ctx context.Context, state *State) (Stage, error) {
	reply, err := e.llm.Chat(ctx, e.prompts.Greeting,
		"Greet the user and ask which product they'd like to build audiences for.", nil)
	if err != nil {
		return state.CurrentStage, NewLLMError("greeting generation failed", err)
	}

	state.AppendAssistant(reply)
	return StageIdentifyProduct, nil
}
