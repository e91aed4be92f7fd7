package types

import (
	"context"
	"time"
)

// EpisodeContext carries the static information of an episode and collects
// what happened during it
type EpisodeContext struct {
	Context context.Context

	Run            int
	Episode        int
	ExperimentName string

	Trace       *Trace
	Timesteps   int
	TotalReward float64
	Terminated  bool
	Truncated   bool
	HorizonEnd  bool
	RunDuration time.Duration
	Err         error
}

func NewEpisodeContext(ctx context.Context, run, episode int, experimentName string) *EpisodeContext {
	return &EpisodeContext{
		Context:        ctx,
		Run:            run,
		Episode:        episode,
		ExperimentName: experimentName,
		Trace:          NewTrace(),
	}
}

func (e *EpisodeContext) SetError(err error) {
	e.Err = err
}

// StepContext wraps the episode context with the transition of the current step.
// State, Action, NextState and Reward are filled in after the environment steps.
type StepContext struct {
	*EpisodeContext
	Step int

	State     State
	Action    Action
	NextState State
	Reward    float64
	Done      bool
}

func NewStepContext(eCtx *EpisodeContext, step int) *StepContext {
	return &StepContext{
		EpisodeContext: eCtx,
		Step:           step,
	}
}
