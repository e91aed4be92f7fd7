package tsp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	for _, size := range []int{1, 2, 5, 20} {
		for _, seed := range []int64{0, 1, 42, 1 << 40} {
			nodes1, d1 := Generate(seed, size)
			nodes2, d2 := Generate(seed, size)
			if diff := cmp.Diff(nodes1, nodes2); diff != "" {
				t.Fatalf("nodes differ for seed %d size %d: %s", seed, size, diff)
			}
			if diff := cmp.Diff(d1.Rows(), d2.Rows()); diff != "" {
				t.Fatalf("distances differ for seed %d size %d: %s", seed, size, diff)
			}
		}
	}
}

func TestGenerateSeedsDiffer(t *testing.T) {
	nodes1, _ := Generate(1, 10)
	nodes2, _ := Generate(2, 10)
	assert.NotEqual(t, nodes1, nodes2)
}

func TestGenerateUnitSquare(t *testing.T) {
	nodes, _ := Generate(7, 100)
	require.Len(t, nodes, 100)
	for _, p := range nodes {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 1.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, 1.0)
	}
}

func TestDistanceMatrixValid(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		nodes, d := Generate(seed, 8)
		require.Equal(t, 8, d.Size())
		for i := range nodes {
			assert.Equal(t, 0.0, d.At(i, i))
			for j := range nodes {
				assert.GreaterOrEqual(t, d.At(i, j), 0.0)
				assert.Equal(t, d.At(i, j), d.At(j, i))
			}
		}
	}
}

func TestDistanceMatrixEuclidean(t *testing.T) {
	d := computeDistances(NodeSet{{0, 0}, {3, 4}, {0, 4}})
	assert.Equal(t, 5.0, d.At(0, 1))
	assert.Equal(t, 4.0, d.At(0, 2))
	assert.Equal(t, 3.0, d.At(1, 2))
}

func TestDistanceMatrixFromRows(t *testing.T) {
	_, ok := distanceMatrixFromRows([][]float64{{0, 1}, {1, 0}})
	assert.True(t, ok)

	for name, rows := range map[string][][]float64{
		"empty":      {},
		"ragged":     {{0, 1}, {1}},
		"short row":  {{0}, {1, 0}},
		"asymmetric": {{0, 1}, {2, 0}},
		"diagonal":   {{1, 1}, {1, 0}},
		"negative":   {{0, -1}, {-1, 0}},
		"not square": {{0, 1, 2}, {1, 0, 2}},
	} {
		_, ok := distanceMatrixFromRows(rows)
		assert.False(t, ok, name)
	}
}
