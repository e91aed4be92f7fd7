package policies

import "github.com/zeu5/routing-rl/types"

// StateAction returns an action for the state when it applies, false otherwise
type StateAction func(types.State, []types.Action) (types.Action, bool)

type IfThenStateAction struct {
	If func(types.State) bool
	T  func([]types.Action) (types.Action, bool)
}

func If(cond func(types.State) bool) *IfThenStateAction {
	return &IfThenStateAction{
		If: cond,
	}
}

func (i *IfThenStateAction) Then(action func([]types.Action) (types.Action, bool)) StateAction {
	i.T = action
	return func(s types.State, actions []types.Action) (types.Action, bool) {
		if i.If(s) {
			return i.T(actions)
		}
		return nil, false
	}
}

// ActionWithHash picks the available action with the given hash
func ActionWithHash(hash string) func([]types.Action) (types.Action, bool) {
	return func(actions []types.Action) (types.Action, bool) {
		for _, a := range actions {
			if a.Hash() == hash {
				return a, true
			}
		}
		return nil, false
	}
}

// StrictPolicy forces the first matching rule and otherwise defers to the wrapped policy.
// Learning is always delegated, forced steps included.
type StrictPolicy struct {
	types.Policy
	conds []StateAction
}

func NewStrictPolicy(def types.Policy) *StrictPolicy {
	return &StrictPolicy{
		Policy: def,
		conds:  make([]StateAction, 0),
	}
}

var _ types.Policy = &StrictPolicy{}

func (s *StrictPolicy) AddPolicy(sa StateAction) *StrictPolicy {
	s.conds = append(s.conds, sa)
	return s
}

func (s *StrictPolicy) NextAction(sCtx *types.StepContext, state types.State, actions []types.Action) (types.Action, bool) {
	for _, cond := range s.conds {
		if a, ok := cond(state, actions); ok {
			return a, true
		}
	}
	return s.Policy.NextAction(sCtx, state, actions)
}
