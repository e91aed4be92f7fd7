package benchmarks

import (
	"fmt"

	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/tsprl"
	"github.com/zeu5/routing-rl/types"
)

type envConstructor func(config tsp.Config, seed uint64, masked bool) (types.Environment, error)

type problem struct {
	ctor envConstructor
	// whether experiments offer only the legal actions unless told otherwise
	masked bool
}

var problems = map[string]problem{
	"tsp": {
		ctor: func(config tsp.Config, seed uint64, masked bool) (types.Environment, error) {
			return tsprl.NewEnvironment(tsprl.Config{Env: config, Seed: seed, Masked: masked})
		},
		masked: true,
	},
}

func lookupProblem(name string) (problem, error) {
	p, ok := problems[name]
	if !ok {
		return problem{}, fmt.Errorf("unknown problem %q", name)
	}
	return p, nil
}
