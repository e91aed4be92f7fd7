// Package tsprl plugs the TSP simulation into the RL framework of package types.
package tsprl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/types"
	"golang.org/x/exp/rand"
)

// Config configures the adapter between the environment and the RL framework
type Config struct {
	Env tsp.Config
	// Seed of the stream the per episode instance seeds are drawn from
	Seed uint64
	// Masked restricts the actions offered to the policy to the action mask
	Masked bool
	// Instance, when set, is replayed every episode instead of generating new ones
	Instance *tsp.Instance
}

// Environment exposes a tsp.Env through the framework's Environment interface.
// Every episode draws a fresh instance seed from its own random source.
type Environment struct {
	env      *tsp.Env
	seeds    *rand.Rand
	masked   bool
	instance *tsp.Instance
}

var _ types.Environment = &Environment{}

func NewEnvironment(config Config) (*Environment, error) {
	env, err := tsp.NewEnv(config.Env)
	if err != nil {
		return nil, err
	}
	if config.Instance != nil {
		if err := config.Instance.Validate(); err != nil {
			return nil, err
		}
	}
	return &Environment{
		env:      env,
		seeds:    rand.New(rand.NewSource(config.Seed)),
		masked:   config.Masked,
		instance: config.Instance,
	}, nil
}

// Env gives access to the wrapped environment
func (e *Environment) Env() *tsp.Env {
	return e.env
}

func (e *Environment) Reset(_ *types.EpisodeContext) (types.State, error) {
	var opts *tsp.ResetOptions
	if e.instance != nil {
		opts = &tsp.ResetOptions{Instance: e.instance}
	}
	// keep the seed non negative so it round trips through the int64 instance record
	obs, _, err := e.env.Reset(int64(e.seeds.Uint64()>>1), opts)
	if err != nil {
		return nil, err
	}
	return e.newState(obs), nil
}

func (e *Environment) Step(a types.Action, _ *types.StepContext) (*types.Outcome, error) {
	action, ok := a.(NodeAction)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected action type %T", tsp.ErrInvalidAction, a)
	}
	obs, reward, terminated, truncated, _, err := e.env.Step(int(action))
	if err != nil {
		return nil, err
	}
	return &types.Outcome{
		State:      e.newState(obs),
		Reward:     reward,
		Terminated: terminated,
		Truncated:  truncated,
	}, nil
}

func (e *Environment) newState(obs *tsp.Observation) *State {
	return NewState(e.env, obs, e.masked)
}

// NewState wraps an observation of env, used when driving a trained policy outside the agent loop
func NewState(env *tsp.Env, obs *tsp.Observation, masked bool) *State {
	costs := make([]float64, len(obs.Nodes))
	for j := range costs {
		costs[j] = env.Distance(obs.CurrentNode, j)
	}
	return &State{Observation: obs, masked: masked, costs: costs}
}

// State is the framework view of an observation.
// States hash to the current node and visited markers, independently of the
// node positions, so policies can learn across instances of the same size.
type State struct {
	*tsp.Observation
	masked bool
	// distances from the current node
	costs []float64
}

var _ types.State = &State{}

func (s *State) Hash() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.CurrentNode))
	b.WriteByte('|')
	for _, v := range s.Visited {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (s *State) Actions() []types.Action {
	actions := make([]types.Action, 0, len(s.Visited))
	if !s.masked {
		for i := range s.Visited {
			actions = append(actions, NodeAction(i))
		}
		return actions
	}
	for i, legal := range tsp.ActionMask(s.Visited) {
		if legal {
			actions = append(actions, NodeAction(i))
		}
	}
	return actions
}

// Cost is the length of the edge the action would traverse
func (s *State) Cost(a types.Action) float64 {
	action, ok := a.(NodeAction)
	if !ok || int(action) < 0 || int(action) >= len(s.costs) {
		return 0
	}
	return s.costs[action]
}

// NodeAction moves the vehicle to the node with this index
type NodeAction int

var _ types.Action = NodeAction(0)

func (a NodeAction) Hash() string {
	return strconv.Itoa(int(a))
}
