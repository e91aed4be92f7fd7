package policies

import (
	"github.com/zeu5/routing-rl/types"
	"golang.org/x/exp/rand"
)

// QLearningPolicy is tabular epsilon-greedy Q-learning on the environment reward
type QLearningPolicy struct {
	qTable  *QTable
	alpha   float64
	gamma   float64
	epsilon float64
	rand    *rand.Rand
}

var _ types.Policy = &QLearningPolicy{}

func NewQLearningPolicy(alpha, gamma, epsilon float64, seed uint64) *QLearningPolicy {
	return &QLearningPolicy{
		qTable:  NewQTable(),
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// QTable exposes the learned values
func (q *QLearningPolicy) QTable() *QTable {
	return q.qTable
}

// SetEpsilon changes the exploration rate, 0 makes the policy greedy
func (q *QLearningPolicy) SetEpsilon(epsilon float64) {
	q.epsilon = epsilon
}

func (q *QLearningPolicy) Record(path string) error {
	return q.qTable.Record(path)
}

func (q *QLearningPolicy) Reset() {
	q.qTable = NewQTable()
}

func (q *QLearningPolicy) UpdateIteration(_ int, _ *types.Trace) {

}

func (q *QLearningPolicy) NextAction(_ *types.StepContext, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	if q.rand.Float64() < q.epsilon {
		return actions[q.rand.Intn(len(actions))], true
	}
	return q.Greedy(state, actions)
}

// Greedy picks the best known action among the available ones, without exploring
func (q *QLearningPolicy) Greedy(state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	actionsMap := make(map[string]types.Action, len(actions))
	hashes := make([]string, len(actions))
	for i, a := range actions {
		h := a.Hash()
		actionsMap[h] = a
		hashes[i] = h
	}
	best, _ := q.qTable.MaxAmong(state.Hash(), hashes, 0)
	if best == "" {
		return nil, false
	}
	return actionsMap[best], true
}

func (q *QLearningPolicy) Update(sCtx *types.StepContext) {
	stateHash := sCtx.State.Hash()
	actionHash := sCtx.Action.Hash()

	next := 0.0
	if !sCtx.Done {
		_, next = q.qTable.Max(sCtx.NextState.Hash(), 0)
	}
	cur := q.qTable.Get(stateHash, actionHash, 0)
	q.qTable.Set(stateHash, actionHash, (1-q.alpha)*cur+q.alpha*(sCtx.Reward+q.gamma*next))
}
