package pipeline

// State is a phase of one refinement run.
type State int

// Run phases, in the order a run passes through them. Reviewing and Refined
// repeat once per round.
const (
	// StateInitial is a run that has not dispatched anything yet.
	StateInitial State = iota
	// StateGenerated holds the generator's first draft.
	StateGenerated
	// StateReviewing is a round waiting on the reviewer's critique.
	StateReviewing
	// StateRefined holds the refiner's draft for the round, before evaluation.
	StateRefined
	// StateTerminal is a finished run. No transition leaves it.
	StateTerminal
)

// String returns the lowercase phase name used in logs and observers.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateGenerated:
		return "generated"
	case StateReviewing:
		return "reviewing"
	case StateRefined:
		return "refined"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Transition is reported to an Observer on every state change.
// Iteration is the zero-based round, or -1 outside the loop.
type Transition struct {
	RunID     string
	From      State
	To        State
	Iteration int
}

// Observer receives transitions synchronously, in order.
type Observer func(Transition)
