package tsp

import (
	"fmt"
	"math"
)

// DefaultMaxDurationFactor bounds an episode to factor * size steps
const DefaultMaxDurationFactor = 100

// Config is the immutable configuration of an environment
type Config struct {
	// Number of stops to visit, including the starting node
	Size int `yaml:"size" json:"size"`
	// Episodes are truncated after MaxDurationFactor * Size steps
	MaxDurationFactor int `yaml:"max_duration_factor" json:"max_duration_factor"`
}

// ResetOptions tweak a reset
type ResetOptions struct {
	// Instance, when set, is loaded instead of generating one from the seed
	Instance *Instance
}

// Env is a single vehicle TSP environment.
// An Env is not safe for concurrent use, give each goroutine its own.
type Env struct {
	config      Config
	maxDuration int

	seed      int64
	nodes     NodeSet
	distances *DistanceMatrix
	state     *EpisodeState
}

// NewEnv validates the configuration and creates an environment.
// The environment must be Reset before stepping.
func NewEnv(config Config) (*Env, error) {
	if config.Size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, config.Size)
	}
	if config.MaxDurationFactor <= 0 {
		config.MaxDurationFactor = DefaultMaxDurationFactor
	}
	if config.Size > math.MaxInt/config.MaxDurationFactor {
		return nil, fmt.Errorf("%w: %d steps of %d nodes overflow the episode length", ErrInvalidSize, config.MaxDurationFactor, config.Size)
	}
	return &Env{
		config:      config,
		maxDuration: config.MaxDurationFactor * config.Size,
	}, nil
}

// Config returns the configuration with defaults applied
func (e *Env) Config() Config {
	return e.config
}

// ActionSpace returns the number of discrete actions, one per node
func (e *Env) ActionSpace() int {
	return e.config.Size
}

// MaxDuration is the step count at which episodes are truncated
func (e *Env) MaxDuration() int {
	return e.maxDuration
}

// Reset generates a new instance from seed (or loads opts.Instance) and starts a new episode
func (e *Env) Reset(seed int64, opts *ResetOptions) (*Observation, *Info, error) {
	var nodes NodeSet
	var distances *DistanceMatrix
	if opts != nil && opts.Instance != nil {
		if opts.Instance.Size != e.config.Size {
			return nil, nil, fmt.Errorf("%w: instance of size %d for an environment of size %d", ErrInvalidInstance, opts.Instance.Size, e.config.Size)
		}
		n, d, err := opts.Instance.problem()
		if err != nil {
			return nil, nil, err
		}
		nodes, distances = n, d
		seed = opts.Instance.Seed
	} else {
		nodes, distances = Generate(seed, e.config.Size)
	}

	e.seed = seed
	e.nodes = nodes
	e.distances = distances
	e.state = NewEpisodeState(e.config.Size)

	return Observe(e.state, e.nodes), Describe(e.state), nil
}

// Step moves to the node action and returns the observation, the reward,
// whether the episode terminated or was truncated, and the diagnostics.
// Nothing is mutated when an error is returned.
func (e *Env) Step(action int) (*Observation, float64, bool, bool, *Info, error) {
	if e.state == nil {
		return nil, 0, false, false, nil, ErrUninitialized
	}
	if action < 0 || action >= e.config.Size {
		return nil, 0, false, false, nil, &InvalidActionError{Action: action, Size: e.config.Size}
	}
	reward, terminated, truncated := Transition(e.state, action, e.distances, e.maxDuration)
	return Observe(e.state, e.nodes), reward, terminated, truncated, Describe(e.state), nil
}

// ActionMasks returns the advisory mask of legal actions for the current state
func (e *Env) ActionMasks() ([]bool, error) {
	if e.state == nil {
		return nil, ErrUninitialized
	}
	return ActionMask(e.state.Visited), nil
}

// State returns a copy of the episode state, nil before the first Reset
func (e *Env) State() *EpisodeState {
	if e.state == nil {
		return nil
	}
	return e.state.Clone()
}

// Nodes returns a copy of the current node positions
func (e *Env) Nodes() NodeSet {
	return e.nodes.Copy()
}

// Distance returns the distance between two nodes of the current instance
func (e *Env) Distance(i, j int) float64 {
	return e.distances.At(i, j)
}

// Instance returns the persistable record of the current instance, nil before the first Reset
func (e *Env) Instance() *Instance {
	if e.state == nil {
		return nil
	}
	return &Instance{
		Seed:      e.seed,
		Size:      e.config.Size,
		Nodes:     e.nodes.Copy(),
		Distances: e.distances.Rows(),
	}
}

// Close is a no-op, the simulation holds no resources. Renderers release their own.
func (e *Env) Close() error {
	return nil
}
