package policies

import (
	"math"

	"github.com/zeu5/routing-rl/types"
	"golang.org/x/exp/rand"
)

// BonusPolicy learns the environment reward plus an exploration bonus of
// weight/sqrt(n) for the n-th try of a pair. Values are updated backwards
// over the trace at the end of every episode. Untried pairs start at weight,
// the bonus of a first try.
type BonusPolicy struct {
	values  *QTable
	visits  *QTable
	alpha   float64
	gamma   float64
	epsilon float64
	weight  float64
	rand    *rand.Rand
}

var _ types.Policy = &BonusPolicy{}

// NewBonusPolicy with weight 0 is tabular Q-learning replayed backwards over each episode
func NewBonusPolicy(alpha, gamma, epsilon, weight float64, seed uint64) *BonusPolicy {
	return &BonusPolicy{
		values:  NewQTable(),
		visits:  NewQTable(),
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		weight:  weight,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// Visits returns how many times the action was taken from the state
func (b *BonusPolicy) Visits(state types.State, action types.Action) int {
	return int(b.visits.Get(state.Hash(), action.Hash(), 0))
}

func (b *BonusPolicy) Record(path string) error {
	return b.values.Record(path)
}

func (b *BonusPolicy) Reset() {
	b.values = NewQTable()
	b.visits = NewQTable()
}

func (b *BonusPolicy) NextAction(_ *types.StepContext, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	if b.rand.Float64() < b.epsilon {
		return actions[b.rand.Intn(len(actions))], true
	}

	byHash := make(map[string]types.Action, len(actions))
	hashes := make([]string, len(actions))
	for i, a := range actions {
		hashes[i] = a.Hash()
		byHash[hashes[i]] = a
	}
	best, _ := b.values.MaxAmong(state.Hash(), hashes, b.weight)
	if best == "" {
		return nil, false
	}
	return byHash[best], true
}

func (b *BonusPolicy) Update(_ *types.StepContext) {}

func (b *BonusPolicy) update(state types.State, action types.Action, nextState types.State, reward float64, done bool) {
	stateHash := state.Hash()
	actionHash := action.Hash()
	n := b.visits.Get(stateHash, actionHash, 0) + 1
	b.visits.Set(stateHash, actionHash, n)

	target := reward + b.weight/math.Sqrt(n)
	if !done {
		_, next := b.values.Max(nextState.Hash(), b.weight)
		target += b.gamma * next
	}
	cur := b.values.Get(stateHash, actionHash, b.weight)
	b.values.Set(stateHash, actionHash, (1-b.alpha)*cur+b.alpha*target)
}

func (b *BonusPolicy) UpdateIteration(_ int, trace *types.Trace) {
	lastIndex := trace.Len() - 1
	for i := lastIndex; i >= 0; i-- {
		state, action, nextState, _ := trace.Get(i)
		reward, _ := trace.Reward(i)
		// only a step that ended the episode has nothing to bootstrap from
		b.update(state, action, nextState, reward, i == lastIndex && trace.Done())
	}
}
