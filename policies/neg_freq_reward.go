package policies

import (
	"math"

	"github.com/zeu5/routing-rl/types"
)

// SoftMaxNegFreqPolicy penalizes states proportionally to how often they were reached
type SoftMaxNegFreqPolicy struct {
	*types.SoftMaxNegPolicy
	Freq map[string]int
	Max  bool // if updates with max instead of plus
}

var _ types.Policy = &SoftMaxNegFreqPolicy{}

func NewSoftMaxNegFreqPolicy(alpha, gamma, temp float64, max bool, seed uint64) *SoftMaxNegFreqPolicy {
	return &SoftMaxNegFreqPolicy{
		SoftMaxNegPolicy: types.NewSoftMaxNegPolicy(alpha, gamma, temp, seed),
		Freq:             make(map[string]int),
		Max:              max,
	}
}

func (t *SoftMaxNegFreqPolicy) Reset() {
	t.SoftMaxNegPolicy.Reset()
	t.Freq = make(map[string]int)
}

func (t *SoftMaxNegFreqPolicy) Update(sCtx *types.StepContext) {
	stateHash := sCtx.State.Hash()
	nextStateHash := sCtx.NextState.Hash()
	actionKey := sCtx.Action.Hash()

	if _, ok := t.QTable[stateHash]; !ok {
		t.QTable[stateHash] = make(map[string]float64)
	}
	curVal := t.QTable[stateHash][actionKey]
	max := float64(0)
	if _, ok := t.QTable[nextStateHash]; ok && !sCtx.Done {
		for _, val := range t.QTable[nextStateHash] {
			if val > max {
				max = val
			}
		}
	}
	t.Freq[nextStateHash] += 1
	reward := float64(-1 * t.Freq[nextStateHash])

	nextVal := float64(0)
	if t.Max {
		nextVal = (1-t.Alpha)*curVal + t.Alpha*math.Max(reward, t.Gamma*max)
	} else {
		nextVal = (1-t.Alpha)*curVal + t.Alpha*(reward+t.Gamma*max)
	}
	t.QTable[stateHash][actionKey] = nextVal
}
