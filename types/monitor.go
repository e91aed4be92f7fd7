package types

import (
	"encoding/json"
	"os"
	"path"
	"strconv"

	"go.uber.org/zap"
)

const (
	InitState = "Init"
)

// MonitorCondition is a predicate on one transition (state, action, nextState)
type MonitorCondition func(State, Action, State) bool

func (m MonitorCondition) Not() MonitorCondition {
	return func(s State, a Action, ns State) bool {
		return !m(s, a, ns)
	}
}

func (m MonitorCondition) Or(other MonitorCondition) MonitorCondition {
	return func(s State, a Action, ns State) bool {
		return m(s, a, ns) || other(s, a, ns)
	}
}

func (m MonitorCondition) And(other MonitorCondition) MonitorCondition {
	return func(s State, a Action, ns State) bool {
		return m(s, a, ns) && other(s, a, ns)
	}
}

// MonitorState is a state of a Monitor, created through the MonitorBuilder
type MonitorState struct {
	Success bool
	Name    string
	// transitions are tried in the order they were added
	transitions []monitorTransition
}

type monitorTransition struct {
	cond MonitorCondition
	next string
}

// Monitor is a state machine run over the transitions of a trace
type Monitor struct {
	states map[string]*MonitorState
}

func NewMonitor() *Monitor {
	m := &Monitor{
		states: make(map[string]*MonitorState),
	}
	m.states[InitState] = &MonitorState{Name: InitState}
	return m
}

// Build returns a builder positioned on the initial state
func (m *Monitor) Build() *MonitorBuilder {
	return &MonitorBuilder{
		monitor:  m,
		curState: m.states[InitState],
	}
}

// Check runs the monitor over the trace and returns the prefix that reaches a success state
func (m *Monitor) Check(t *Trace) (*Trace, bool) {
	curState := m.states[InitState]
	if curState.Success {
		return NewTrace(), true
	}
	for i := 0; i < t.Len(); i++ {
		s, a, ns, _ := t.Get(i)
		for _, tr := range curState.transitions {
			if tr.cond(s, a, ns) {
				curState = m.states[tr.next]
				break
			}
		}
		if curState.Success {
			return t.GetPrefix(i + 1)
		}
	}
	return nil, false
}

type MonitorBuilder struct {
	monitor  *Monitor
	curState *MonitorState
}

// On adds a transition from the current state and returns a builder positioned on next,
// creating the state when it does not exist yet
func (m *MonitorBuilder) On(cond MonitorCondition, next string) *MonitorBuilder {
	nextState, ok := m.monitor.states[next]
	if !ok {
		nextState = &MonitorState{Name: next}
		m.monitor.states[next] = nextState
	}
	m.curState.transitions = append(m.curState.transitions, monitorTransition{cond: cond, next: next})
	return &MonitorBuilder{
		monitor:  m.monitor,
		curState: nextState,
	}
}

func (m *MonitorBuilder) MarkSuccess() *MonitorBuilder {
	m.curState.Success = true
	return m
}

// PropertyDesc names a monitor whose success marks an episode
type PropertyDesc struct {
	Name    string
	Monitor *Monitor
}

// PropertyDataSet counts, for every property, the episodes that satisfied it
type PropertyDataSet struct {
	Occurrences      map[string]int
	FirstOccurrences map[string]int
	// length of the shortest satisfying prefix per property
	ShortestPrefix map[string]int
}

type PropertyAnalyzer struct {
	properties []PropertyDesc
	ds         *PropertyDataSet
}

var _ Analyzer = (*PropertyAnalyzer)(nil)

func PropertyAnalyzerCtor(properties ...PropertyDesc) AnalyzerCtor {
	return func() Analyzer {
		a := &PropertyAnalyzer{properties: properties}
		a.Reset()
		return a
	}
}

func (a *PropertyAnalyzer) Analyze(_ int, episode int, _ string, eCtx *EpisodeContext) {
	if eCtx.Err != nil || eCtx.Trace == nil {
		return
	}
	for _, p := range a.properties {
		prefix, ok := p.Monitor.Check(eCtx.Trace)
		if !ok {
			continue
		}
		a.ds.Occurrences[p.Name] += 1
		if _, seen := a.ds.FirstOccurrences[p.Name]; !seen {
			a.ds.FirstOccurrences[p.Name] = episode
		}
		if l, seen := a.ds.ShortestPrefix[p.Name]; !seen || prefix.Len() < l {
			a.ds.ShortestPrefix[p.Name] = prefix.Len()
		}
	}
}

func (a *PropertyAnalyzer) DataSet() DataSet {
	return a.ds
}

func (a *PropertyAnalyzer) Reset() {
	a.ds = &PropertyDataSet{
		Occurrences:      make(map[string]int),
		FirstOccurrences: make(map[string]int),
		ShortestPrefix:   make(map[string]int),
	}
}

// PropertyComparator logs the property counts and writes them as json under savePath
func PropertyComparator(savePath string, logger *zap.Logger) Comparator {
	return func(run int, _ int, names []string, ds []DataSet) error {
		data := make(map[string]*PropertyDataSet)
		for i, exp := range names {
			props, ok := ds[i].(*PropertyDataSet)
			if !ok {
				continue
			}
			for name, count := range props.Occurrences {
				logger.Info("property",
					zap.Int("run", run),
					zap.String("experiment", exp),
					zap.String("property", name),
					zap.Int("episodes", count),
					zap.Int("first_episode", props.FirstOccurrences[name]),
				)
			}
			data[exp] = props
		}
		if err := os.MkdirAll(savePath, os.ModePerm); err != nil {
			return err
		}
		bs, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return os.WriteFile(path.Join(savePath, strconv.Itoa(run)+"_properties.json"), bs, 0644)
	}
}
