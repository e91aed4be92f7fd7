package tsp

// ActionMask computes the advisory set of legal actions from the visited markers:
// every unvisited node, plus the starting node once at least one other node
// has been visited. The environment never enforces it.
func ActionMask(visited []bool) []bool {
	mask := make([]bool, len(visited))
	visitedCount := 0
	for i, v := range visited {
		mask[i] = !v
		if v {
			visitedCount++
		}
	}
	if len(visited) > 0 {
		mask[StartingNode] = visitedCount > 1 || len(visited) == 1
	}
	return mask
}
