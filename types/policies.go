package types

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

type Policy interface {
	// UpdateIteration is called with the trace at the end of each episode
	UpdateIteration(int, *Trace)
	NextAction(*StepContext, State, []Action) (Action, bool)
	// Update is called after every step with the filled in step context
	Update(*StepContext)
	Reset()
}

// SoftMaxNegPolicy learns to avoid states it has already seen: every step is
// rewarded -1 and actions are sampled with a softmax over the q values
type SoftMaxNegPolicy struct {
	QTable      map[string]map[string]float64
	Alpha       float64
	Gamma       float64
	Temperature float64
	src         rand.Source
}

func NewSoftMaxNegPolicy(alpha, gamma, temperature float64, seed uint64) *SoftMaxNegPolicy {
	return &SoftMaxNegPolicy{
		QTable:      make(map[string]map[string]float64),
		Alpha:       alpha,
		Gamma:       gamma,
		Temperature: temperature,
		src:         rand.NewSource(seed),
	}
}

var _ Policy = &SoftMaxNegPolicy{}

func (s *SoftMaxNegPolicy) Reset() {
	s.QTable = make(map[string]map[string]float64)
}

func (s *SoftMaxNegPolicy) UpdateIteration(_ int, _ *Trace) {

}

func (s *SoftMaxNegPolicy) NextAction(_ *StepContext, state State, actions []Action) (Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	stateHash := state.Hash()

	if _, ok := s.QTable[stateHash]; !ok {
		s.QTable[stateHash] = make(map[string]float64)
	}

	for _, a := range actions {
		aName := a.Hash()
		if _, ok := s.QTable[stateHash][aName]; !ok {
			s.QTable[stateHash][aName] = 0
		}
	}

	return SoftMaxSample(s.src, s.QTable[stateHash], actions, s.Temperature)
}

func (s *SoftMaxNegPolicy) Update(sCtx *StepContext) {
	stateHash := sCtx.State.Hash()
	nextStateHash := sCtx.NextState.Hash()
	actionKey := sCtx.Action.Hash()
	if _, ok := s.QTable[stateHash]; !ok {
		return
	}
	if _, ok := s.QTable[stateHash][actionKey]; !ok {
		return
	}
	curVal := s.QTable[stateHash][actionKey]
	max := float64(0)
	if _, ok := s.QTable[nextStateHash]; ok && !sCtx.Done {
		for _, val := range s.QTable[nextStateHash] {
			if val > max {
				max = val
			}
		}
	}
	nextVal := (1-s.Alpha)*curVal + s.Alpha*(-1+s.Gamma*max)
	s.QTable[stateHash][actionKey] = nextVal
}

// SoftMaxSample picks one of the actions with probability proportional to exp(q/temperature)
func SoftMaxSample(src rand.Source, qValues map[string]float64, actions []Action, temperature float64) (Action, bool) {
	if temperature <= 0 {
		temperature = 1
	}
	vals := make([]float64, len(actions))
	maxVal := math.Inf(-1)
	for i, action := range actions {
		vals[i] = qValues[action.Hash()] / temperature
		if vals[i] > maxVal {
			maxVal = vals[i]
		}
	}
	// shifting by the max keeps exp from overflowing
	weights := make([]float64, len(actions))
	for i, v := range vals {
		weights[i] = math.Exp(v - maxVal)
	}
	i, ok := sampleuv.NewWeighted(weights, src).Take()
	if !ok {
		return nil, false
	}
	return actions[i], true
}

// RandomPolicy picks uniformly among the available actions
type RandomPolicy struct {
	rand *rand.Rand
}

var _ Policy = &RandomPolicy{}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomPolicy) Reset() {

}

func (r *RandomPolicy) UpdateIteration(_ int, _ *Trace) {

}

func (r *RandomPolicy) NextAction(_ *StepContext, _ State, actions []Action) (Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	i := r.rand.Intn(len(actions))
	return actions[i], true
}

func (r *RandomPolicy) Update(_ *StepContext) {}
