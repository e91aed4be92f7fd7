package tsp

import (
	"encoding/json"
	"fmt"
)

// Instance is the portable record of a generated problem.
// The stored distances are reused as is when the instance is loaded back,
// so replaying the same actions yields the same transitions.
type Instance struct {
	Seed      int64       `json:"seed"`
	Size      int         `json:"size"`
	Nodes     NodeSet     `json:"nodes"`
	Distances [][]float64 `json:"distance_matrix"`
}

// NewInstance builds an instance from explicit node positions, computing the distances
func NewInstance(seed int64, nodes NodeSet) *Instance {
	return &Instance{
		Seed:      seed,
		Size:      len(nodes),
		Nodes:     nodes.Copy(),
		Distances: computeDistances(nodes).Rows(),
	}
}

// Validate checks that the record describes a consistent instance
func (i *Instance) Validate() error {
	if i.Size < 1 {
		return fmt.Errorf("%w: size %d", ErrInvalidInstance, i.Size)
	}
	if len(i.Nodes) != i.Size {
		return fmt.Errorf("%w: %d nodes for size %d", ErrInvalidInstance, len(i.Nodes), i.Size)
	}
	if _, ok := distanceMatrixFromRows(i.Distances); !ok || len(i.Distances) != i.Size {
		return fmt.Errorf("%w: distance matrix is not a %dx%d symmetric matrix with zero diagonal", ErrInvalidInstance, i.Size, i.Size)
	}
	return nil
}

func (i *Instance) problem() (NodeSet, *DistanceMatrix, error) {
	if err := i.Validate(); err != nil {
		return nil, nil, err
	}
	d, _ := distanceMatrixFromRows(i.Distances)
	return i.Nodes.Copy(), d, nil
}

// EncodeInstance serializes the instance as JSON
func EncodeInstance(i *Instance) ([]byte, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(i)
}

// DecodeInstance parses and validates a JSON encoded instance
func DecodeInstance(data []byte) (*Instance, error) {
	i := &Instance{}
	if err := json.Unmarshal(data, i); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInstance, err)
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}
