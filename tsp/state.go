package tsp

// StartingNode is the fixed node every tour starts from and must return to
const StartingNode = 0

// EpisodeState is the mutable record of one episode.
// It is created by NewEpisodeState and changed only by Transition.
type EpisodeState struct {
	CurrentNode        int     `json:"current_node"`
	Visited            []bool  `json:"visited"`
	VisitOrder         []int   `json:"visit_order"`
	Duration           int     `json:"duration"`
	CumulativeDistance float64 `json:"cumulative_distance"`
}

// NewEpisodeState returns the state of a fresh episode positioned on the starting node
func NewEpisodeState(size int) *EpisodeState {
	visited := make([]bool, size)
	visited[StartingNode] = true
	return &EpisodeState{
		CurrentNode:        StartingNode,
		Visited:            visited,
		VisitOrder:         []int{StartingNode},
		Duration:           0,
		CumulativeDistance: 0,
	}
}

// VisitedCount returns the number of distinct nodes visited so far
func (s *EpisodeState) VisitedCount() int {
	count := 0
	for _, v := range s.Visited {
		if v {
			count++
		}
	}
	return count
}

// AllVisited is true once every node has been visited at least once
func (s *EpisodeState) AllVisited() bool {
	return s.VisitedCount() == len(s.Visited)
}

// Clone returns a deep copy of the state
func (s *EpisodeState) Clone() *EpisodeState {
	visited := make([]bool, len(s.Visited))
	copy(visited, s.Visited)
	order := make([]int, len(s.VisitOrder))
	copy(order, s.VisitOrder)
	return &EpisodeState{
		CurrentNode:        s.CurrentNode,
		Visited:            visited,
		VisitOrder:         order,
		Duration:           s.Duration,
		CumulativeDistance: s.CumulativeDistance,
	}
}
