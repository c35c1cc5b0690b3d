package audience

import (
	"github.com/google/uuid"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// Role tags an utterance with its speaker.
type Role string

const (
	// RoleUser marks an utterance typed by the user.
	RoleUser Role = "user"

	// RoleAssistant marks an utterance produced by a dialogue stage.
	RoleAssistant Role = "assistant"
)

// Stage identifies a step of the dialogue state machine.
type Stage string

const (
	// StageGreet produces the opening assistant message.
	StageGreet Stage = "greet"

	// StageIdentifyProduct extracts the product the user wants audiences for.
	StageIdentifyProduct Stage = "identify_product"

	// StageLookupProduct resolves the identified product against the catalog.
	StageLookupProduct Stage = "lookup_product"

	// StageFormatResults renders the search results as a summary and table.
	StageFormatResults Stage = "format_results"

	// StageTerminal marks the end of automatic progression for the session.
	StageTerminal Stage = "terminal"
)

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageGreet, StageIdentifyProduct, StageLookupProduct, StageFormatResults, StageTerminal:
		return true
	}
	return false
}

// Utterance is one entry of the conversation history.
// This is also the wire shape persisted by session stores: richer
// per-stage data lives in the other State fields, never in history.
type Utterance struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the conversation state threaded through every stage.
// Stages append to History and set or replace the other fields; nothing
// is ever removed from History.
type State struct {
	// History is the chronological sequence of utterances. Append-only.
	History []Utterance `json:"history"`

	// ProductName is the product under discussion, set once
	// identification succeeds. A later identification may overwrite it.
	ProductName string `json:"productName,omitempty"`

	// ProductCategory and BuyerCategory are category labels attached to
	// a single resolved product.
	ProductCategory string `json:"productCategory,omitempty"`
	BuyerCategory   string `json:"buyerCategory,omitempty"`

	// SearchResults holds the most recent catalog search outcome.
	// Present only after a successful lookup.
	SearchResults *catalog.SearchResults `json:"searchResults,omitempty"`

	// CurrentStage is the next stage to execute. Always a valid stage
	// name after every stage execution.
	CurrentStage Stage `json:"currentStage"`
}

// NewState returns the initial conversation state for a fresh session.
func NewState() *State {
	return &State{
		History:      make([]Utterance, 0),
		CurrentStage: StageGreet,
	}
}

// Clone returns a copy of the state whose history slice is independent
// of the receiver's. SearchResults is shared; stages treat it as
// read-only once set.
func (s *State) Clone() *State {
	clone := *s
	clone.History = make([]Utterance, len(s.History))
	copy(clone.History, s.History)
	return &clone
}

// AppendUser appends a user utterance to the history.
func (s *State) AppendUser(content string) {
	s.History = append(s.History, Utterance{Role: RoleUser, Content: content})
}

// AppendAssistant appends an assistant utterance to the history.
func (s *State) AppendAssistant(content string) {
	s.History = append(s.History, Utterance{Role: RoleAssistant, Content: content})
}

// LastAssistant returns the most recent assistant utterance, or "" if
// none exists.
func (s *State) LastAssistant() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Content
		}
	}
	return ""
}

// LastUser returns the most recent user utterance, or "" if none exists.
func (s *State) LastUser() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleUser {
			return s.History[i].Content
		}
	}
	return ""
}

// awaitingInput reports whether the conversation is waiting for the
// user: true unless the newest history entry is a user utterance.
func (s *State) awaitingInput() bool {
	if len(s.History) == 0 {
		return true
	}
	return s.History[len(s.History)-1].Role != RoleUser
}

// NewSessionID generates a new opaque session identifier.
func NewSessionID() string {
	return uuid.New().String()
}
