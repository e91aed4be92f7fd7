package tsp

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Point is a node position in the unit square
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeSet is the ordered, immutable list of node positions of an instance
type NodeSet []Point

// Copy returns a NodeSet that shares no memory with n
func (n NodeSet) Copy() NodeSet {
	out := make(NodeSet, len(n))
	copy(out, n)
	return out
}

// DistanceMatrix holds the pairwise euclidean distances between nodes.
// Backed by a symmetric matrix, so d[i][j] == d[j][i] holds by construction.
type DistanceMatrix struct {
	m *mat.SymDense
}

func newDistanceMatrix(size int) *DistanceMatrix {
	return &DistanceMatrix{m: mat.NewSymDense(size, nil)}
}

// At returns the distance between nodes i and j
func (d *DistanceMatrix) At(i, j int) float64 {
	return d.m.At(i, j)
}

// Size returns the number of nodes
func (d *DistanceMatrix) Size() int {
	return d.m.SymmetricDim()
}

// Rows returns the matrix as a freshly allocated slice of rows
func (d *DistanceMatrix) Rows() [][]float64 {
	n := d.Size()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = d.m.At(i, j)
		}
	}
	return rows
}

// distanceMatrixFromRows rebuilds a matrix from persisted rows.
// Rows are validated for shape, symmetry, zero diagonal and non negative entries.
func distanceMatrixFromRows(rows [][]float64) (*DistanceMatrix, bool) {
	n := len(rows)
	if n == 0 {
		return nil, false
	}
	for _, row := range rows {
		if len(row) != n {
			return nil, false
		}
	}
	d := newDistanceMatrix(n)
	for i := 0; i < n; i++ {
		if rows[i][i] != 0 {
			return nil, false
		}
		for j := i; j < n; j++ {
			if rows[i][j] < 0 || rows[i][j] != rows[j][i] {
				return nil, false
			}
			d.m.SetSym(i, j, rows[i][j])
		}
	}
	return d, true
}

// Generate samples size nodes uniformly in the unit square and computes their
// distance matrix. The random source is created here and seeded with seed,
// so the same (seed, size) always returns bit identical coordinates.
func Generate(seed int64, size int) (NodeSet, *DistanceMatrix) {
	r := rand.New(rand.NewSource(uint64(seed)))
	nodes := make(NodeSet, size)
	for i := range nodes {
		nodes[i].X = r.Float64()
		nodes[i].Y = r.Float64()
	}
	return nodes, computeDistances(nodes)
}

func computeDistances(nodes NodeSet) *DistanceMatrix {
	d := newDistanceMatrix(len(nodes))
	for i := range nodes {
		a := []float64{nodes[i].X, nodes[i].Y}
		for j := i + 1; j < len(nodes); j++ {
			b := []float64{nodes[j].X, nodes[j].Y}
			d.m.SetSym(i, j, floats.Distance(a, b, 2))
		}
	}
	return d
}
