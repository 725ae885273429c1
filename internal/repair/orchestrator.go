package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"robospec/internal/corrector"
	"robospec/internal/logging"
	"robospec/internal/normalizer"
	"robospec/internal/task"
	"robospec/internal/validator"
)

// Orchestrator runs the bounded repair loop. It holds no per-run state and
// may serve concurrent runs; each run issues at most one generator request
// at a time.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

// New returns an Orchestrator, filling nil stages with defaults.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.New(nil)
	}
	if deps.Correct == nil {
		deps.Correct = corrector.Correct
	}
	if deps.Validator == nil {
		deps.Validator = validator.New(deps.Symbols)
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// run is the state of one invocation.
type run struct {
	o       *Orchestrator
	machine *fsm.FSM
	out     *Outcome
	log     *logging.Logger
}

// GenerateAndRun asks the generator for a first draft of spec and repairs it.
func (o *Orchestrator) GenerateAndRun(ctx context.Context, spec task.Spec) (*Outcome, error) {
	if o.deps.Generator == nil {
		return nil, errors.New("no generator configured")
	}

	knowledge := ""
	if o.deps.Context != nil {
		var err error
		knowledge, err = o.deps.Context.BuildContext(spec.Category)
		if err != nil {
			return nil, fmt.Errorf("build context for %s: %w", spec.Category, err)
		}
	}

	r := o.newRun(spec.Category)
	logging.Repair("run %s: requesting %s draft for %s", r.out.RunID, spec.Category, spec.Robot)
	raw, err := o.deps.Generator.Generate(ctx, spec, knowledge)
	if err != nil {
		return r.abandon(ctx, fmt.Errorf("generate: %w", err))
	}
	return r.loop(ctx, raw, knowledge)
}

// Run drives raw through the loop for category. knowledge is forwarded to
// repair requests. On collaborator failure or cancellation the partial
// Outcome is returned together with an error wrapping ErrAbandoned.
func (o *Orchestrator) Run(ctx context.Context, raw, category, knowledge string) (*Outcome, error) {
	return o.newRun(category).loop(ctx, raw, knowledge)
}

func (o *Orchestrator) newRun(category string) *run {
	id := uuid.NewString()
	r := &run{
		o:   o,
		out: &Outcome{RunID: id, Category: category, State: StateGenerated, History: []State{StateGenerated}},
		log: logging.Get(logging.CategoryRepair).With("run_id", id),
	}
	r.machine = newMachine(func(from, to State) {
		r.out.State = to
		r.out.History = append(r.out.History, to)
		r.log.Debug("%s -> %s", from, to)
	})
	logging.RepairDebug("run %s started for %s", id, category)
	return r
}

func (r *run) fire(ctx context.Context, event string) error {
	if err := r.machine.Event(ctx, event); err != nil {
		return fmt.Errorf("transition %s from %s: %w", event, r.machine.Current(), err)
	}
	return nil
}

func (r *run) loop(ctx context.Context, code, knowledge string) (*Outcome, error) {
	var pending *Round
	maxAttempts := r.o.cfg.MaxAttempts
	if r.o.deps.Generator == nil {
		maxAttempts = 0
	}

	for {
		if err := ctx.Err(); err != nil {
			return r.abandon(ctx, err)
		}

		if err := r.fire(ctx, eventNormalize); err != nil {
			return r.abandon(ctx, err)
		}
		var fixes, corrections []string
		code, fixes = r.o.deps.Normalizer.Normalize(code, r.out.Category)
		r.out.Fixes = append(r.out.Fixes, fixes...)

		if err := r.fire(ctx, eventCorrect); err != nil {
			return r.abandon(ctx, err)
		}
		code, corrections = r.o.deps.Correct(code)
		r.out.Corrections = append(r.out.Corrections, corrections...)

		if err := r.fire(ctx, eventValidate); err != nil {
			return r.abandon(ctx, err)
		}
		verdict := r.o.deps.Validator.Validate(code)
		r.out.Code = code
		r.out.Verdict = verdict

		if pending != nil {
			pending.Fixes = fixes
			pending.Corrections = corrections
			pending.After = &verdict
			r.out.Rounds = append(r.out.Rounds, *pending)
			pending = nil
		}

		if verdict.Valid {
			if err := r.fire(ctx, eventAccept); err != nil {
				return r.abandon(ctx, err)
			}
			r.log.Info("accepted after %d repair requests", r.out.RepairRequests)
			return r.out, nil
		}

		if r.out.RepairRequests >= maxAttempts {
			if err := r.fire(ctx, eventGiveUp); err != nil {
				return r.abandon(ctx, err)
			}
			r.log.Warn("best effort after %d repair requests: %d errors remain", r.out.RepairRequests, len(verdict.Errors))
			return r.out, nil
		}

		if err := r.fire(ctx, eventRequestRepair); err != nil {
			return r.abandon(ctx, err)
		}
		r.out.RepairRequests++
		req := RepairRequest{
			Code:          code,
			Errors:        verdict.Errors,
			Context:       knowledge,
			Category:      r.out.Category,
			WhitelistHint: r.whitelistHint(verdict),
			Attempt:       r.out.RepairRequests,
		}
		r.log.Info("repair attempt %d/%d: %d errors", req.Attempt, maxAttempts, len(req.Errors))

		repaired, err := r.o.deps.Generator.Repair(ctx, req)
		if err != nil {
			return r.abandon(ctx, fmt.Errorf("repair attempt %d: %w", req.Attempt, err))
		}
		pending = &Round{Attempt: req.Attempt, Before: verdict}
		code = repaired
	}
}

// whitelistHint lists the whole surface when an error names an unknown
// symbol.
func (r *run) whitelistHint(v validator.Verdict) string {
	if !v.HasUnknownSymbol() || r.o.deps.Symbols == nil {
		return ""
	}
	surface := r.o.deps.Symbols.Load()
	if surface.Empty() {
		return ""
	}
	return WhitelistHintHeader + strings.Join(surface.Sorted(), ", ")
}

// abandon moves the run to abandoned and returns the partial outcome. The
// transition uses a context that ignores cancellation so a cancelled run
// still reaches its terminal state.
func (r *run) abandon(ctx context.Context, cause error) (*Outcome, error) {
	from := r.out.State
	if !from.Terminal() {
		if err := r.machine.Event(context.WithoutCancel(ctx), eventAbandon); err != nil {
			r.log.Error("abandon transition failed: %v", err)
			r.out.State = StateAbandoned
		}
	}
	r.log.Warn("abandoned in %s: %v", from, cause)
	return r.out, fmt.Errorf("%w: %w", ErrAbandoned, cause)
}
