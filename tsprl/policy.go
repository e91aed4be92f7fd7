package tsprl

import (
	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/types"
)

// NearestNeighborPolicy moves to the closest unvisited node and closes the
// tour once none is left. It does not learn; ties go to the first listed action.
type NearestNeighborPolicy struct{}

var _ types.Policy = NearestNeighborPolicy{}

func NewNearestNeighborPolicy() NearestNeighborPolicy {
	return NearestNeighborPolicy{}
}

func (NearestNeighborPolicy) Reset() {}

func (NearestNeighborPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (NearestNeighborPolicy) Update(_ *types.StepContext) {}

func (NearestNeighborPolicy) NextAction(_ *types.StepContext, s types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	state, ok := s.(*State)
	if !ok {
		return actions[0], true
	}
	var best types.Action
	bestCost := 0.0
	for _, a := range actions {
		node, ok := a.(NodeAction)
		if !ok || int(node) < 0 || int(node) >= len(state.Visited) || state.Visited[node] {
			continue
		}
		if c := state.Cost(a); best == nil || c < bestCost {
			best = a
			bestCost = c
		}
	}
	if best != nil {
		return best, true
	}
	for _, a := range actions {
		if node, ok := a.(NodeAction); ok && int(node) == tsp.StartingNode {
			return a, true
		}
	}
	return actions[0], true
}
