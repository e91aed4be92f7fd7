package tsp

// Transition moves the agent to action, updating state in place, and returns
// the reward of the move together with the episode end flags.
//
// The episode terminates exactly when the agent comes back to StartingNode.
// Returning with every node visited pays Size minus the last leg, returning
// early costs the number of visited nodes plus the last leg. Any other move
// costs the length of the traversed edge. Truncation is independent of
// termination and fires once Duration reaches maxDuration.
//
// action is not validated here, callers must check it is in [0, Size).
func Transition(state *EpisodeState, action int, distances *DistanceMatrix, maxDuration int) (float64, bool, bool) {
	traveled := distances.At(state.CurrentNode, action)

	state.Visited[action] = true
	state.CurrentNode = action
	state.VisitOrder = append(state.VisitOrder, action)
	state.Duration += 1
	state.CumulativeDistance += traveled

	terminated := action == StartingNode

	var reward float64
	switch {
	case terminated && state.AllVisited():
		reward = float64(len(state.Visited)) - traveled
	case terminated:
		reward = -float64(state.VisitedCount()) - traveled
	default:
		reward = -traveled
	}

	truncated := state.Duration >= maxDuration
	return reward, terminated, truncated
}
