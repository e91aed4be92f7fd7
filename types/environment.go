package types

// Environment explored by the RL agent
type Environment interface {
	// Reset called at the start of each episode
	Reset(*EpisodeContext) (State, error)
	// Step takes the action and reports the outcome
	Step(Action, *StepContext) (*Outcome, error)
}

// Outcome of a single step
type Outcome struct {
	State      State
	Reward     float64
	Terminated bool
	Truncated  bool
}

// Done is true when the episode cannot continue
func (o *Outcome) Done() bool {
	return o.Terminated || o.Truncated
}

// State of the system that RL policies observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
	// Actions possible from the state
	Actions() []Action
}

// And Action that RL policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}
