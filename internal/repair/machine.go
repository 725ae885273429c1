package repair

import (
	"context"

	"github.com/looplab/fsm"
)

// Events of the repair state machine.
const (
	eventNormalize     = "normalize"
	eventCorrect       = "correct"
	eventValidate      = "validate"
	eventAccept        = "accept"
	eventRequestRepair = "request_repair"
	eventGiveUp        = "give_up"
	eventAbandon       = "abandon"
)

func names(states ...State) []string {
	out := make([]string, len(states))
	for i, st := range states {
		out[i] = string(st)
	}
	return out
}

var transitions = fsm.Events{
	{Name: eventNormalize, Src: names(StateGenerated, StateRepairRequested), Dst: string(StateNormalized)},
	{Name: eventCorrect, Src: names(StateNormalized), Dst: string(StateCorrected)},
	{Name: eventValidate, Src: names(StateCorrected), Dst: string(StateValidated)},
	{Name: eventAccept, Src: names(StateValidated), Dst: string(StateAccepted)},
	{Name: eventRequestRepair, Src: names(StateValidated), Dst: string(StateRepairRequested)},
	{Name: eventGiveUp, Src: names(StateValidated), Dst: string(StateBestEffort)},
	{Name: eventAbandon, Src: names(StateGenerated, StateNormalized, StateCorrected, StateValidated, StateRepairRequested), Dst: string(StateAbandoned)},
}

// newMachine builds a state machine starting at generated. onEnter is
// called after every transition with the new state.
func newMachine(onEnter func(from, to State)) *fsm.FSM {
	return fsm.NewFSM(
		string(StateGenerated),
		transitions,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(State(e.Src), State(e.Dst))
			},
		},
	)
}
