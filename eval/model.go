// Package eval measures trained models on stored instances.
package eval

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/tsprl"
	"github.com/zeu5/routing-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoActionMaskingSupport is returned when masking is requested from a model that cannot use masks
	ErrNoActionMaskingSupport = errors.New("the model does not support action masking")
	ErrNoAction               = errors.New("the model returned no action")
)

// Input is what a model sees at one step
type Input struct {
	Env         *tsp.Env
	Observation *tsp.Observation
	// Flat is set when observations are flattened
	Flat []float64
}

// Model picks the next node to visit
type Model interface {
	Predict(Input) (int, error)
}

// MaskedModel can restrict its choice to the legal actions
type MaskedModel interface {
	Model
	PredictMasked(Input, []bool) (int, error)
}

// SupportsMasking tells whether the model can be evaluated with masking enabled
func SupportsMasking(m Model) bool {
	_, ok := m.(MaskedModel)
	return ok
}

// CollectFunc obtains the next action from a model
type CollectFunc func(Model, Input) (int, error)

func collectMasked(m Model, in Input) (int, error) {
	masked, ok := m.(MaskedModel)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrNoActionMaskingSupport, m)
	}
	mask, err := in.Env.ActionMasks()
	if err != nil {
		return 0, err
	}
	return masked.PredictMasked(in, mask)
}

func collectUnmasked(m Model, in Input) (int, error) {
	return m.Predict(in)
}

// CollectAction returns the collection function matching the masking setting
func CollectAction(enableMasking bool) CollectFunc {
	if enableMasking {
		return collectMasked
	}
	return collectUnmasked
}

// NearestNeighbor moves to the closest node that is still legal
type NearestNeighbor struct{}

var _ MaskedModel = NearestNeighbor{}

// Predict picks the closest unvisited node, the start node once all are visited
func (NearestNeighbor) Predict(in Input) (int, error) {
	obs := in.Observation
	candidates := make([]bool, len(obs.Visited))
	for i, v := range obs.Visited {
		candidates[i] = !v
	}
	return nearest(obs, candidates), nil
}

func (NearestNeighbor) PredictMasked(in Input, mask []bool) (int, error) {
	if len(mask) != len(in.Observation.Nodes) {
		return 0, fmt.Errorf("mask of length %d for %d nodes", len(mask), len(in.Observation.Nodes))
	}
	return nearest(in.Observation, mask), nil
}

// nearest returns the closest candidate, the start node only when no other candidate is left
func nearest(obs *tsp.Observation, candidates []bool) int {
	cur := obs.Nodes[obs.CurrentNode]
	best := tsp.StartingNode
	bestDist := math.Inf(1)
	for i, ok := range candidates {
		if !ok || i == obs.CurrentNode || i == tsp.StartingNode {
			continue
		}
		p := obs.Nodes[i]
		d := floats.Distance([]float64{cur.X, cur.Y}, []float64{p.X, p.Y}, 2)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Uniform picks any node with equal probability and cannot use masks
type Uniform struct {
	mu   sync.Mutex
	rand *rand.Rand
}

var _ Model = &Uniform{}

func NewUniform(seed uint64) *Uniform {
	return &Uniform{rand: rand.New(rand.NewSource(seed))}
}

func (u *Uniform) Predict(in Input) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rand.Intn(len(in.Observation.Nodes)), nil
}

// PolicyModel drives a framework policy outside the training loop
type PolicyModel struct {
	mu     sync.Mutex
	policy types.Policy
}

var _ MaskedModel = &PolicyModel{}

// FromPolicy wraps a trained policy. Calls are serialized since policies are not safe for concurrent use.
func FromPolicy(p types.Policy) *PolicyModel {
	return &PolicyModel{policy: p}
}

func (m *PolicyModel) predict(in Input, masked bool) (int, error) {
	state := tsprl.NewState(in.Env, in.Observation, masked)
	m.mu.Lock()
	a, ok := m.policy.NextAction(nil, state, state.Actions())
	m.mu.Unlock()
	if !ok {
		return 0, ErrNoAction
	}
	action, ok := a.(tsprl.NodeAction)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected action type %T", tsp.ErrInvalidAction, a)
	}
	return int(action), nil
}

func (m *PolicyModel) Predict(in Input) (int, error) {
	return m.predict(in, false)
}

// PredictMasked restricts the policy to the legal actions of the environment
func (m *PolicyModel) PredictMasked(in Input, _ []bool) (int, error) {
	return m.predict(in, true)
}
