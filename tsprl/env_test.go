package tsprl

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/routing-rl/policies"
	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/types"
)

func triangle() *tsp.Instance {
	return tsp.NewInstance(0, tsp.NodeSet{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}})
}

func hashes(actions []types.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Hash()
	}
	return out
}

func TestStateHashAndActions(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle(), Masked: true})
	require.NoError(t, err)

	s, err := env.Reset(nil)
	require.NoError(t, err)
	assert.Equal(t, "0|100", s.Hash())
	assert.Equal(t, []string{"1", "2"}, hashes(s.Actions()))

	out, err := env.Step(NodeAction(1), nil)
	require.NoError(t, err)
	assert.Equal(t, "1|110", out.State.Hash())
	assert.Equal(t, []string{"0", "2"}, hashes(out.State.Actions()))
	assert.Equal(t, -1.0, out.Reward)
	assert.False(t, out.Done())
}

func TestUnmaskedActions(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 4}, Seed: 3})
	require.NoError(t, err)
	s, err := env.Reset(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3"}, hashes(s.Actions()))
}

func TestStateCost(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle()})
	require.NoError(t, err)
	s, err := env.Reset(nil)
	require.NoError(t, err)
	out, err := env.Step(NodeAction(1), nil)
	require.NoError(t, err)

	state := out.State.(*State)
	assert.InDelta(t, math.Sqrt2, state.Cost(NodeAction(2)), 1e-12)
	assert.Equal(t, 1.0, state.Cost(NodeAction(0)))
	assert.Equal(t, 0.0, state.Cost(NodeAction(7)))
	assert.Equal(t, 1.0, s.(*State).Cost(NodeAction(2)))
}

type otherAction struct{}

func (otherAction) Hash() string { return "other" }

func TestStepUnknownAction(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}})
	require.NoError(t, err)
	_, err = env.Reset(nil)
	require.NoError(t, err)
	_, err = env.Step(otherAction{}, nil)
	assert.ErrorIs(t, err, tsp.ErrInvalidAction)
	_, err = env.Step(NodeAction(5), nil)
	assert.ErrorIs(t, err, tsp.ErrInvalidAction)
}

func TestSeedStream(t *testing.T) {
	first := func(seed uint64) []tsp.NodeSet {
		env, err := NewEnvironment(Config{Env: tsp.Config{Size: 5}, Seed: seed})
		require.NoError(t, err)
		out := make([]tsp.NodeSet, 3)
		for i := range out {
			_, err := env.Reset(nil)
			require.NoError(t, err)
			out[i] = env.Env().Nodes()
		}
		return out
	}
	a := first(11)
	b := first(11)
	assert.Equal(t, a, b)
	// every episode gets a new instance
	assert.NotEqual(t, a[0], a[1])
}

func TestInvalidFixedInstance(t *testing.T) {
	_, err := NewEnvironment(Config{Env: tsp.Config{Size: 2}, Instance: &tsp.Instance{Size: 2}})
	assert.ErrorIs(t, err, tsp.ErrInvalidInstance)
	_, err = NewEnvironment(Config{Env: tsp.Config{Size: 0}})
	assert.ErrorIs(t, err, tsp.ErrInvalidSize)
}

func runEpisode(t *testing.T, policy types.Policy, env types.Environment) *types.EpisodeContext {
	t.Helper()
	agent := types.NewAgent(&types.AgentConfig{Episodes: 1, Horizon: 20, Policy: policy, Environment: env})
	eCtx := types.NewEpisodeContext(context.Background(), 0, 0, "test")
	agent.RunEpisode(eCtx)
	require.NoError(t, eCtx.Err)
	return eCtx
}

func TestNearestNeighborTour(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle(), Masked: true})
	require.NoError(t, err)

	eCtx := runEpisode(t, NewNearestNeighborPolicy(), env)
	assert.True(t, eCtx.Terminated)
	assert.Equal(t, 3, eCtx.Timesteps)
	assert.InDelta(t, 2-1-math.Sqrt2, eCtx.TotalReward, 1e-12)

	analyzer := NewTourLengthAnalyzer()
	analyzer.Analyze(0, 4, "nn", eCtx)
	ds := analyzer.DataSet().(*TourLengthDataSet)
	require.Len(t, ds.Lengths, 1)
	assert.InDelta(t, 2+math.Sqrt2, ds.Lengths[0], 1e-12)
	assert.Equal(t, []int{4}, ds.Episodes)

	props := types.PropertyAnalyzerCtor(Properties()...)()
	props.Analyze(0, 4, "nn", eCtx)
	pds := props.DataSet().(*types.PropertyDataSet)
	assert.Equal(t, 1, pds.Occurrences["CompleteTour"])
	assert.Equal(t, 0, pds.Occurrences["PrematureReturn"])
	assert.Equal(t, 0, pds.Occurrences["Revisit"])
	assert.Equal(t, 3, pds.ShortestPrefix["CompleteTour"])
}

func TestNearestNeighborUnmasked(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 6}, Seed: 5})
	require.NoError(t, err)

	eCtx := runEpisode(t, NewNearestNeighborPolicy(), env)
	assert.True(t, eCtx.Terminated)
	assert.Equal(t, 6, eCtx.Timesteps)

	_, _, last, ok := eCtx.Trace.Last()
	require.True(t, ok)
	for _, v := range last.(*State).Visited {
		assert.True(t, v)
	}
}

func TestIncompleteTourIsNotMeasured(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle()})
	require.NoError(t, err)

	goHome := policies.NewStrictPolicy(types.NewRandomPolicy(0)).
		AddPolicy(func(_ types.State, actions []types.Action) (types.Action, bool) {
			return policies.ActionWithHash("0")(actions)
		})
	eCtx := runEpisode(t, goHome, env)
	assert.True(t, eCtx.Terminated)
	assert.Equal(t, 1, eCtx.Timesteps)
	assert.Equal(t, -1.0, eCtx.TotalReward)

	analyzer := NewTourLengthAnalyzer()
	analyzer.Analyze(0, 0, "home", eCtx)
	assert.Empty(t, analyzer.DataSet().(*TourLengthDataSet).Lengths)

	props := types.PropertyAnalyzerCtor(Properties()...)()
	props.Analyze(0, 0, "home", eCtx)
	pds := props.DataSet().(*types.PropertyDataSet)
	assert.Equal(t, 1, pds.Occurrences["PrematureReturn"])
	assert.Equal(t, 0, pds.Occurrences["CompleteTour"])
}

func TestRevisitProperty(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle()})
	require.NoError(t, err)
	s, err := env.Reset(nil)
	require.NoError(t, err)

	trace := types.NewTrace()
	for i, a := range []int{1, 2, 1, 0} {
		out, err := env.Step(NodeAction(a), nil)
		require.NoError(t, err)
		trace.Append(i, s, NodeAction(a), out.State, out.Reward)
		s = out.State
	}
	prefix, ok := Revisit().Monitor.Check(trace)
	require.True(t, ok)
	assert.Equal(t, 3, prefix.Len())

	_, ok = CompleteTour().Monitor.Check(trace)
	assert.True(t, ok)
}

func TestStrictPolicyReturnsWhenDone(t *testing.T) {
	env, err := NewEnvironment(Config{Env: tsp.Config{Size: 3}, Instance: triangle()})
	require.NoError(t, err)

	allVisited := func(s types.State) bool {
		for _, v := range s.(*State).Visited {
			if !v {
				return false
			}
		}
		return true
	}
	// a fixed order of moves that never returns by itself
	order := []types.Action{NodeAction(1), NodeAction(2), NodeAction(1)}
	step := 0
	scripted := policies.NewStrictPolicy(types.NewRandomPolicy(0)).
		AddPolicy(policies.If(allVisited).Then(policies.ActionWithHash("0"))).
		AddPolicy(func(_ types.State, _ []types.Action) (types.Action, bool) {
			a := order[step%len(order)]
			step++
			return a, true
		})

	eCtx := runEpisode(t, scripted, env)
	assert.True(t, eCtx.Terminated)
	assert.Equal(t, 3, eCtx.Timesteps)
	assert.InDelta(t, 2-1-math.Sqrt2, eCtx.TotalReward, 1e-12)
}
