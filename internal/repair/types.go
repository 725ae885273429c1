// Package repair drives a generated config through normalize, correct and
// validate rounds, asking the generator for a fixed version while attempts
// remain. The loop is an explicit state machine: every run ends in
// accepted, best_effort or abandoned.
package repair

import (
	"context"
	"errors"

	"robospec/internal/task"
	"robospec/internal/validator"
)

// State names a position in the repair state machine.
type State string

const (
	StateGenerated       State = "generated"
	StateNormalized      State = "normalized"
	StateCorrected       State = "corrected"
	StateValidated       State = "validated"
	StateRepairRequested State = "repair_requested"

	// Terminal states.
	StateAccepted   State = "accepted"    // verdict valid
	StateBestEffort State = "best_effort" // attempts exhausted, errors surfaced
	StateAbandoned  State = "abandoned"   // collaborator failure or cancellation
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateBestEffort || s == StateAbandoned
}

// DefaultMaxAttempts is the number of repair requests per run.
const DefaultMaxAttempts = 2

// WhitelistHintHeader starts the hint sent with unknown-symbol errors.
const WhitelistHintHeader = "AVAILABLE MDP FUNCTIONS (use ONLY these):\n"

// ErrAbandoned wraps every error returned with an abandoned Outcome.
var ErrAbandoned = errors.New("repair run abandoned")

// Config controls the loop.
type Config struct {
	// MaxAttempts caps repair requests. Zero disables repair.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultConfig returns the standard loop configuration.
func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts}
}

// RepairRequest is what the generator receives when a round fails.
type RepairRequest struct {
	Code          string
	Errors        []string
	Context       string
	Category      string
	WhitelistHint string // empty unless an error names an unknown symbol
	Attempt       int
}

// Generator produces and repairs configs. Implementations usually call an
// LLM and extract the env config from its response.
type Generator interface {
	Generate(ctx context.Context, spec task.Spec, knowledge string) (string, error)
	Repair(ctx context.Context, req RepairRequest) (string, error)
}

// ContextBuilder assembles the reference material for a category.
type ContextBuilder interface {
	BuildContext(category string) (string, error)
}

// Normalizer is the deterministic rewrite stage.
type Normalizer interface {
	Normalize(code, category string) (string, []string)
}

// Validator is the structural check stage.
type Validator interface {
	Validate(code string) validator.Verdict
}

// CorrectFunc is the name substitution stage.
type CorrectFunc func(code string) (string, []string)

// Deps are the collaborators an Orchestrator uses. Nil stages fall back to
// the package defaults; a nil Generator limits runs to the local pass.
type Deps struct {
	Normalizer Normalizer
	Correct    CorrectFunc
	Validator  Validator
	Symbols    validator.SymbolSource
	Generator  Generator
	Context    ContextBuilder
}

// Round records one repair iteration.
type Round struct {
	Attempt     int
	Before      validator.Verdict
	Fixes       []string
	Corrections []string
	After       *validator.Verdict
}

// Outcome is the result of a run.
type Outcome struct {
	RunID          string
	Category       string
	State          State
	Code           string
	Verdict        validator.Verdict
	Fixes          []string
	Corrections    []string
	Rounds         []Round
	RepairRequests int
	History        []State
}

// Accepted reports whether the final verdict was valid.
func (o *Outcome) Accepted() bool { return o.State == StateAccepted }
