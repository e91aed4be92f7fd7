package types

import (
	"fmt"
	"time"
)

type AgentConfig struct {
	Episodes    int
	Horizon     int
	Policy      Policy
	Environment Environment
}

// RL Agent configured with the corresponding
// policy and environment
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// RunEpisode runs a single episode. The episode ends when the environment
// terminates or truncates, when the horizon is reached, or when the policy
// cannot pick an action. Errors are stored in the episode context.
func (a *Agent) RunEpisode(eCtx *EpisodeContext) {
	start := time.Now()
	defer func() {
		eCtx.RunDuration = time.Since(start)
	}()

	state, err := a.environment.Reset(eCtx)
	if err != nil {
		eCtx.SetError(fmt.Errorf("reset: %w", err))
		return
	}
	actions := state.Actions()

	for i := 0; i < a.config.Horizon; i++ {
		select {
		case <-eCtx.Context.Done():
			eCtx.SetError(eCtx.Context.Err())
			return
		default:
		}
		if len(actions) == 0 {
			break
		}
		sCtx := NewStepContext(eCtx, i)
		nextAction, ok := a.policy.NextAction(sCtx, state, actions)
		if !ok {
			break
		}
		outcome, err := a.environment.Step(nextAction, sCtx)
		if err != nil {
			eCtx.SetError(fmt.Errorf("step %d: %w", i, err))
			return
		}
		sCtx.State = state
		sCtx.Action = nextAction
		sCtx.NextState = outcome.State
		sCtx.Reward = outcome.Reward
		sCtx.Done = outcome.Done()
		a.policy.Update(sCtx)

		eCtx.Trace.Append(i, state, nextAction, outcome.State, outcome.Reward)
		eCtx.Timesteps += 1
		eCtx.TotalReward += outcome.Reward

		if outcome.Done() {
			eCtx.Terminated = outcome.Terminated
			eCtx.Truncated = outcome.Truncated
			eCtx.Trace.MarkDone()
			break
		}
		state = outcome.State
		actions = state.Actions()
	}
	if !eCtx.Terminated && !eCtx.Truncated && eCtx.Timesteps == a.config.Horizon {
		eCtx.HorizonEnd = true
	}
	a.policy.UpdateIteration(eCtx.Episode, eCtx.Trace)
}
