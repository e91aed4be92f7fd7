package tsprl

import (
	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/types"
)

func states(s, ns types.State) (*State, *State, bool) {
	from, ok := s.(*State)
	if !ok {
		return nil, nil, false
	}
	to, ok := ns.(*State)
	if !ok {
		return nil, nil, false
	}
	return from, to, true
}

func countVisited(visited []bool) int {
	count := 0
	for _, v := range visited {
		if v {
			count++
		}
	}
	return count
}

// ReturnsToStart holds when the step moves the vehicle back to the start node
func ReturnsToStart() types.MonitorCondition {
	return func(s types.State, a types.Action, ns types.State) bool {
		_, to, ok := states(s, ns)
		return ok && to.CurrentNode == tsp.StartingNode
	}
}

// AllVisitedBefore holds when every node was visited before the step
func AllVisitedBefore() types.MonitorCondition {
	return func(s types.State, a types.Action, ns types.State) bool {
		from, _, ok := states(s, ns)
		return ok && countVisited(from.Visited) == len(from.Visited)
	}
}

// MovesToVisited holds when the step targets a node other than the start that was already visited
func MovesToVisited() types.MonitorCondition {
	return func(s types.State, a types.Action, ns types.State) bool {
		from, _, ok := states(s, ns)
		if !ok {
			return false
		}
		action, ok := a.(NodeAction)
		if !ok || int(action) < 0 || int(action) >= len(from.Visited) {
			return false
		}
		return int(action) != tsp.StartingNode && from.Visited[action]
	}
}

// CompleteTour is satisfied by episodes that close the tour after visiting every node
func CompleteTour() types.PropertyDesc {
	m := types.NewMonitor()
	m.Build().On(ReturnsToStart().And(AllVisitedBefore()), "Complete").MarkSuccess()
	return types.PropertyDesc{Name: "CompleteTour", Monitor: m}
}

// PrematureReturn is satisfied by episodes that go back to the start with nodes left unvisited
func PrematureReturn() types.PropertyDesc {
	m := types.NewMonitor()
	m.Build().On(ReturnsToStart().And(AllVisitedBefore().Not()), "Premature").MarkSuccess()
	return types.PropertyDesc{Name: "PrematureReturn", Monitor: m}
}

// Revisit is satisfied by episodes that move to an already visited node
func Revisit() types.PropertyDesc {
	m := types.NewMonitor()
	m.Build().On(MovesToVisited(), "Revisit").MarkSuccess()
	return types.PropertyDesc{Name: "Revisit", Monitor: m}
}

// Properties are the tour properties tracked by the comparisons
func Properties() []types.PropertyDesc {
	return []types.PropertyDesc{CompleteTour(), PrematureReturn(), Revisit()}
}
