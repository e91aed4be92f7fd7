package tsp

// Observation is what an agent sees of the episode
type Observation struct {
	Nodes       NodeSet `json:"nodes"`
	CurrentNode int     `json:"current_node"`
	Visited     []bool  `json:"visited"`
}

// Info carries diagnostics, it is never read back by the transition logic
type Info struct {
	VisitedCount int   `json:"visited_count"`
	VisitOrder   []int `json:"visit_order"`
}

// Observe projects the state into an observation. The result shares no memory with state or nodes.
func Observe(state *EpisodeState, nodes NodeSet) *Observation {
	visited := make([]bool, len(state.Visited))
	copy(visited, state.Visited)
	return &Observation{
		Nodes:       nodes.Copy(),
		CurrentNode: state.CurrentNode,
		Visited:     visited,
	}
}

// Describe projects the state into the diagnostics record
func Describe(state *EpisodeState) *Info {
	order := make([]int, len(state.VisitOrder))
	copy(order, state.VisitOrder)
	return &Info{
		VisitedCount: state.VisitedCount(),
		VisitOrder:   order,
	}
}

// Flatten lays the observation out as a single vector: the node coordinates
// (x0, y0, x1, y1, ...), a one-hot encoding of the current node and the
// visited markers as 0/1.
func (o *Observation) Flatten() []float64 {
	n := len(o.Nodes)
	out := make([]float64, 0, 4*n)
	for _, p := range o.Nodes {
		out = append(out, p.X, p.Y)
	}
	for i := 0; i < n; i++ {
		if i == o.CurrentNode {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	for _, v := range o.Visited {
		if v {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}
