package policies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/routing-rl/types"
)

type testAction string

func (a testAction) Hash() string { return string(a) }

type testState struct {
	hash    string
	actions []types.Action
}

func (s *testState) Hash() string { return s.hash }
func (s *testState) Actions() []types.Action { return s.actions }

// chainEnv is a line of states 0..length, "right" moves forward and pays 1 on
// reaching the end, "stay" pays nothing
type chainEnv struct {
	length int
	pos    int
}

func (c *chainEnv) state() *testState {
	return &testState{
		hash:    string(rune('0' + c.pos)),
		actions: []types.Action{testAction("stay"), testAction("right")},
	}
}

func (c *chainEnv) Reset(_ *types.EpisodeContext) (types.State, error) {
	c.pos = 0
	return c.state(), nil
}

func (c *chainEnv) Step(a types.Action, _ *types.StepContext) (*types.Outcome, error) {
	reward := 0.0
	if a.Hash() == "right" {
		c.pos++
	}
	done := c.pos == c.length
	if done {
		reward = 1
	}
	return &types.Outcome{State: c.state(), Reward: reward, Terminated: done}, nil
}

func train(t *testing.T, policy types.Policy, env types.Environment, episodes, horizon int) []*types.EpisodeContext {
	t.Helper()
	agent := types.NewAgent(&types.AgentConfig{Episodes: episodes, Horizon: horizon, Policy: policy, Environment: env})
	out := make([]*types.EpisodeContext, episodes)
	for i := 0; i < episodes; i++ {
		eCtx := types.NewEpisodeContext(context.Background(), 0, i, "test")
		agent.RunEpisode(eCtx)
		require.NoError(t, eCtx.Err)
		out[i] = eCtx
	}
	return out
}

func TestQLearningLearnsChain(t *testing.T) {
	q := NewQLearningPolicy(0.5, 0.9, 0.3, 1)
	train(t, q, &chainEnv{length: 3}, 300, 20)

	q.SetEpsilon(0)
	env := &chainEnv{length: 3}
	eCtx := train(t, q, env, 1, 20)[0]
	assert.True(t, eCtx.Terminated)
	assert.Equal(t, 3, eCtx.Timesteps)

	a, ok := q.Greedy(&testState{hash: "0"}, []types.Action{testAction("stay"), testAction("right")})
	require.True(t, ok)
	assert.Equal(t, "right", a.Hash())
}

func TestQLearningNoActions(t *testing.T) {
	q := NewQLearningPolicy(0.1, 0.9, 0, 1)
	_, ok := q.NextAction(nil, &testState{hash: "s"}, nil)
	assert.False(t, ok)
}

func TestQLearningUpdate(t *testing.T) {
	q := NewQLearningPolicy(0.5, 0.9, 0, 1)
	q.QTable().Set("1", "right", 2)
	sCtx := &types.StepContext{
		State:     &testState{hash: "0"},
		Action:    testAction("right"),
		NextState: &testState{hash: "1"},
		Reward:    1,
	}
	q.Update(sCtx)
	// 0.5 * 0 + 0.5 * (1 + 0.9 * 2)
	assert.InDelta(t, 1.4, q.QTable().Get("0", "right", 0), 1e-12)

	sCtx.Done = true
	q.Update(sCtx)
	// the successor is ignored once the episode is done
	assert.InDelta(t, 0.5*1.4+0.5*1, q.QTable().Get("0", "right", 0), 1e-12)

	q.Reset()
	assert.Equal(t, 0, q.QTable().Len())
}

func TestBonusPolicyPrefersUntried(t *testing.T) {
	b := NewBonusPolicy(0.5, 0.9, 0, 1, 1)
	s := &testState{hash: "s"}
	ns := &testState{hash: "n"}
	actions := []types.Action{testAction("a"), testAction("b")}

	for i := 0; i < 2; i++ {
		trace := types.NewTrace()
		trace.Append(0, s, testAction("a"), ns, 0)
		trace.MarkDone()
		b.UpdateIteration(i, trace)
	}
	assert.Equal(t, 2, b.Visits(s, testAction("a")))
	assert.Equal(t, 0, b.Visits(s, testAction("b")))

	next, ok := b.NextAction(nil, s, actions)
	require.True(t, ok)
	assert.Equal(t, "b", next.Hash())
}

func TestBonusPolicyFollowsReward(t *testing.T) {
	b := NewBonusPolicy(0.5, 0.9, 0, 1, 1)
	s := &testState{hash: "s"}
	ns := &testState{hash: "n"}

	trace := types.NewTrace()
	trace.Append(0, s, testAction("a"), ns, 5)
	trace.MarkDone()
	b.UpdateIteration(0, trace)

	// (1-0.5)*1 + 0.5*(5+1)
	assert.InDelta(t, 3.5, b.values.Get("s", "a", 0), 1e-9)
	next, ok := b.NextAction(nil, s, []types.Action{testAction("b"), testAction("a")})
	require.True(t, ok)
	assert.Equal(t, "a", next.Hash())

	b.Reset()
	assert.Equal(t, 0, b.Visits(s, testAction("a")))
}

func TestBonusPolicyBootstrapsAtHorizon(t *testing.T) {
	s := &testState{hash: "s"}
	ns := &testState{hash: "n"}

	// the episode stopped at the horizon, the value of n is still ahead
	b := NewBonusPolicy(0.5, 0.9, 0, 1, 1)
	trace := types.NewTrace()
	trace.Append(0, s, testAction("a"), ns, 0)
	b.UpdateIteration(0, trace)
	// (1-0.5)*1 + 0.5*(0 + 1 + 0.9*1)
	assert.InDelta(t, 1.45, b.values.Get("s", "a", 0), 1e-9)

	b = NewBonusPolicy(0.5, 0.9, 0, 1, 1)
	trace.MarkDone()
	b.UpdateIteration(0, trace)
	assert.InDelta(t, 1.0, b.values.Get("s", "a", 0), 1e-9)
}

func TestSoftMaxNegFreqPenalizesRepeats(t *testing.T) {
	p := NewSoftMaxNegFreqPolicy(0.5, 0.9, 1, false, 3)
	s := &testState{hash: "s"}
	ns := &testState{hash: "n"}

	_, ok := p.NextAction(nil, s, []types.Action{testAction("a")})
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		p.Update(&types.StepContext{State: s, Action: testAction("a"), NextState: ns, Done: true})
	}
	assert.Equal(t, 3, p.Freq["n"])
	assert.Less(t, p.QTable["s"]["a"], 0.0)

	p.Reset()
	assert.Empty(t, p.Freq)
	assert.Empty(t, p.QTable)
}

func TestStrictPolicy(t *testing.T) {
	always := func(types.State) bool { return true }
	never := func(types.State) bool { return false }
	actions := []types.Action{testAction("a"), testAction("b")}

	s := NewStrictPolicy(types.NewRandomPolicy(0)).
		AddPolicy(If(never).Then(ActionWithHash("a"))).
		AddPolicy(If(always).Then(ActionWithHash("b")))
	for i := 0; i < 5; i++ {
		a, ok := s.NextAction(nil, &testState{hash: "s"}, actions)
		require.True(t, ok)
		assert.Equal(t, "b", a.Hash())
	}

	// a rule whose action is unavailable defers to the wrapped policy
	s = NewStrictPolicy(types.NewRandomPolicy(0)).AddPolicy(If(always).Then(ActionWithHash("z")))
	a, ok := s.NextAction(nil, &testState{hash: "s"}, actions)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b"}, a.Hash())
}
