package types

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type counterAction string

func (a counterAction) Hash() string { return string(a) }

type counterState struct {
	value int
}

func (s *counterState) Hash() string { return strconv.Itoa(s.value) }

func (s *counterState) Actions() []Action {
	return []Action{counterAction("inc"), counterAction("dec")}
}

// counterEnv counts up or down and terminates at target, every step pays -1
type counterEnv struct {
	target  int
	value   int
	failAt  int
	resets  int
	panicAt int
}

func (c *counterEnv) Reset(_ *EpisodeContext) (State, error) {
	c.resets++
	c.value = 0
	return &counterState{}, nil
}

func (c *counterEnv) Step(a Action, sCtx *StepContext) (*Outcome, error) {
	if c.failAt > 0 && sCtx.Step+1 == c.failAt {
		return nil, errors.New("boom")
	}
	if c.panicAt > 0 && sCtx.Step+1 == c.panicAt {
		panic("step panicked")
	}
	if a.Hash() == "inc" {
		c.value++
	} else {
		c.value--
	}
	return &Outcome{
		State:      &counterState{value: c.value},
		Reward:     -1,
		Terminated: c.value == c.target,
	}, nil
}

// incPolicy always increments and counts its callbacks
type incPolicy struct {
	updates    int
	iterations int
	resets     int
}

func (p *incPolicy) NextAction(_ *StepContext, _ State, actions []Action) (Action, bool) {
	return actions[0], true
}
func (p *incPolicy) Update(_ *StepContext)           { p.updates++ }
func (p *incPolicy) UpdateIteration(_ int, _ *Trace) { p.iterations++ }
func (p *incPolicy) Reset()                          { p.resets++ }

func TestAgentRunEpisode(t *testing.T) {
	policy := &incPolicy{}
	agent := NewAgent(&AgentConfig{Episodes: 1, Horizon: 10, Policy: policy, Environment: &counterEnv{target: 3}})
	eCtx := NewEpisodeContext(context.Background(), 0, 0, "counter")
	agent.RunEpisode(eCtx)

	require.NoError(t, eCtx.Err)
	assert.True(t, eCtx.Terminated)
	assert.False(t, eCtx.HorizonEnd)
	assert.Equal(t, 3, eCtx.Timesteps)
	assert.Equal(t, -3.0, eCtx.TotalReward)
	assert.Equal(t, 3, eCtx.Trace.Len())
	assert.True(t, eCtx.Trace.Done())
	assert.Equal(t, -3.0, eCtx.Trace.TotalReward())
	assert.Equal(t, 3, policy.updates)
	assert.Equal(t, 1, policy.iterations)
}

func TestAgentHorizon(t *testing.T) {
	agent := NewAgent(&AgentConfig{Episodes: 1, Horizon: 4, Policy: &incPolicy{}, Environment: &counterEnv{target: 100}})
	eCtx := NewEpisodeContext(context.Background(), 0, 0, "counter")
	agent.RunEpisode(eCtx)

	require.NoError(t, eCtx.Err)
	assert.False(t, eCtx.Terminated)
	assert.True(t, eCtx.HorizonEnd)
	assert.Equal(t, 4, eCtx.Timesteps)
	assert.False(t, eCtx.Trace.Done())
}

func TestAgentStepError(t *testing.T) {
	agent := NewAgent(&AgentConfig{Episodes: 1, Horizon: 10, Policy: &incPolicy{}, Environment: &counterEnv{target: 5, failAt: 2}})
	eCtx := NewEpisodeContext(context.Background(), 0, 0, "counter")
	agent.RunEpisode(eCtx)

	require.Error(t, eCtx.Err)
	assert.Contains(t, eCtx.Err.Error(), "boom")
	assert.Equal(t, 1, eCtx.Timesteps)
}

func TestAgentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agent := NewAgent(&AgentConfig{Episodes: 1, Horizon: 10, Policy: &incPolicy{}, Environment: &counterEnv{target: 5}})
	eCtx := NewEpisodeContext(ctx, 0, 0, "counter")
	agent.RunEpisode(eCtx)
	assert.ErrorIs(t, eCtx.Err, context.Canceled)
}

func TestTrace(t *testing.T) {
	trace := NewTrace()
	for i := 0; i < 4; i++ {
		trace.Append(i, &counterState{value: i}, counterAction("inc"), &counterState{value: i + 1}, float64(i))
	}
	assert.Equal(t, 4, trace.Len())
	assert.Equal(t, 6.0, trace.TotalReward())

	s, a, ns, ok := trace.Get(2)
	require.True(t, ok)
	assert.Equal(t, "2", s.Hash())
	assert.Equal(t, "inc", a.Hash())
	assert.Equal(t, "3", ns.Hash())
	_, _, _, ok = trace.Get(4)
	assert.False(t, ok)

	_, _, last, ok := trace.Last()
	require.True(t, ok)
	assert.Equal(t, "4", last.Hash())

	prefix, ok := trace.GetPrefix(2)
	require.True(t, ok)
	assert.Equal(t, 2, prefix.Len())
	assert.Equal(t, 2, trace.Slice(1, 3).Len())

	trace.MarkDone()
	assert.True(t, trace.Slice(2, 4).Done())
	assert.False(t, trace.Slice(1, 3).Done())
	full, _ := trace.GetPrefix(4)
	assert.True(t, full.Done())
	prefix, _ = trace.GetPrefix(3)
	assert.False(t, prefix.Done())

	bs, err := json.Marshal(trace)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"next_state":"4"`)
}

func TestMonitor(t *testing.T) {
	reaches := func(v int) MonitorCondition {
		return func(_ State, _ Action, ns State) bool {
			return ns.(*counterState).value == v
		}
	}
	m := NewMonitor()
	m.Build().On(reaches(2), "Two").On(reaches(3), "Three").MarkSuccess()

	trace := NewTrace()
	for i := 0; i < 5; i++ {
		trace.Append(i, &counterState{value: i}, counterAction("inc"), &counterState{value: i + 1}, -1)
	}
	prefix, ok := m.Check(trace)
	require.True(t, ok)
	assert.Equal(t, 3, prefix.Len())

	short, _ := trace.GetPrefix(2)
	_, ok = m.Check(short)
	assert.False(t, ok)

	// combinators
	assert.True(t, reaches(1).Or(reaches(7))(nil, nil, &counterState{value: 1}))
	assert.False(t, reaches(1).And(reaches(7))(nil, nil, &counterState{value: 1}))
	assert.True(t, reaches(7).Not()(nil, nil, &counterState{value: 1}))
}

func TestCoverageAnalyzer(t *testing.T) {
	a := NewCoverageAnalyzer()
	for episode := 0; episode < 3; episode++ {
		eCtx := NewEpisodeContext(context.Background(), 0, episode, "counter")
		for i := 0; i <= episode; i++ {
			eCtx.Trace.Append(i, &counterState{value: i}, counterAction("inc"), &counterState{value: i + 1}, -1)
		}
		a.Analyze(0, episode, "counter", eCtx)
	}
	ds := a.DataSet().(*CoverageDataSet)
	assert.Equal(t, []int{2, 3, 4}, ds.Coverage)
	assert.Equal(t, 3, a.Graph().GetVisits()["0"])

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, a.Graph().Record(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	a.Reset()
	assert.Equal(t, 0, a.Graph().Len())
}

func TestEpisodeRewardDataSet(t *testing.T) {
	ds := &EpisodeRewardDataSet{
		Rewards:    []float64{1, 2, 3, 4},
		Terminated: []bool{true, false, true, true},
	}
	assert.Equal(t, 0.75, ds.CompletionRate())
	assert.Equal(t, []float64{1, 1.5, 2.5, 3.5}, ds.MovingAverage(2))
	assert.Equal(t, ds.Rewards, ds.MovingAverage(0))
	assert.Equal(t, 0.0, (&EpisodeRewardDataSet{}).CompletionRate())
}

func TestEpisodeRewardChartAxis(t *testing.T) {
	a := NewEpisodeRewardAnalyzer()
	for episode := 0; episode < 4; episode++ {
		eCtx := NewEpisodeContext(context.Background(), 0, episode, "counter")
		eCtx.TotalReward = float64(episode)
		if episode == 1 {
			eCtx.SetError(errors.New("boom"))
		}
		a.Analyze(0, episode, "counter", eCtx)
	}
	ds := a.DataSet().(*EpisodeRewardDataSet)
	assert.Equal(t, 1, ds.Errors)
	assert.Equal(t, []float64{0, 2, 3}, ds.Rewards)
	assert.Equal(t, []string{"0", "1", "2"}, chartAxis([]DataSet{ds}))

	dir := t.TempDir()
	require.NoError(t, EpisodeRewardChart(dir, 1)(0, 4, []string{"counter"}, []DataSet{ds}))
	_, err := os.Stat(filepath.Join(dir, "0_episode_rewards.html"))
	assert.NoError(t, err)
}

func TestParallelOutput(t *testing.T) {
	o := NewParallelOutput()
	o.Set("a")
	assert.Equal(t, "a", o.Get())
	assert.True(t, o.TrySet("b"))
	assert.Equal(t, "b", o.Get())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestTerminalPrinter(t *testing.T) {
	defer goleak.VerifyNone(t)

	outputs := []*ParallelOutput{NewParallelOutput(), NewParallelOutput()}
	outputs[0].Set("first")
	outputs[1].Set("second")
	out := &syncBuffer{}
	p := newTerminalPrinter(context.Background(), outputs, time.Millisecond, out)
	p.Start()
	time.Sleep(5 * time.Millisecond)
	p.Stop()

	printed := out.String()
	assert.Contains(t, printed, "first")
	assert.Contains(t, printed, "second")
}

func TestComparison(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	c, err := NewComparison(&ComparisonConfig{
		Runs:                2,
		Episodes:            5,
		Horizon:             10,
		RecordPath:          dir,
		RecordTraces:        true,
		ParallelExperiments: 2,
		Logger:              zap.NewNop(),
	})
	require.NoError(t, err)

	var mu sync.Mutex
	compared := make(map[int][]string)
	c.AddAnalysis("rewards", EpisodeRewardAnalyzerCtor(), func(run int, episodes int, names []string, ds []DataSet) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, episodes)
		for i := range names {
			rewards := ds[i].(*EpisodeRewardDataSet)
			assert.Len(t, rewards.Rewards, 5)
			assert.Equal(t, 1.0, rewards.CompletionRate())
		}
		compared[run] = names
		return nil
	})
	c.AddAnalysis("summary", EpisodeRewardAnalyzerCtor(), EpisodeRewardSummary(zap.NewNop()))

	p1, p2 := &incPolicy{}, &incPolicy{}
	c.AddExperiment(NewExperiment("short", p1, &counterEnv{target: 2}))
	c.AddExperiment(NewExperiment("long", p2, &counterEnv{target: 4}))

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, map[int][]string{0: {"short", "long"}, 1: {"short", "long"}}, compared)
	// reset between runs only
	assert.Equal(t, 1, p1.resets)
	assert.Equal(t, 10, p1.iterations)

	_, err = os.Stat(filepath.Join(dir, "comparison_config.json"))
	assert.NoError(t, err)
	traces, err := os.ReadFile(filepath.Join(dir, "traces", "short_0.jsonl"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(traces)), "\n"), 5)
}

func TestComparisonAbortsOnErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewComparison(&ComparisonConfig{
		Episodes:               10,
		Horizon:                10,
		RecordPath:             t.TempDir(),
		ConsecutiveErrorsAbort: 3,
	})
	require.NoError(t, err)
	env := &counterEnv{target: 5, panicAt: 1}
	c.AddExperiment(NewExperiment("panics", &incPolicy{}, env))

	err = c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step panicked")
	assert.Equal(t, 3, env.resets)
}

func TestComparisonCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewComparison(&ComparisonConfig{
		Episodes:   10,
		Horizon:    10,
		RecordPath: t.TempDir(),
	})
	require.NoError(t, err)
	c.AddExperiment(NewExperiment("counter", &incPolicy{}, &counterEnv{target: 2}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}
