package harness

import (
	"github.com/ahaiya/essaydeliberate/internal/controller"
	"github.com/ahaiya/essaydeliberate/internal/runstate"
)

// materializeTransitions turns a per-round decision trace into transitions
// with sparse terminal reward: for each trace index t, with is_last = (t ==
// len-1), the reward is nonzero only on the terminal transition, and
// next_state is the following trace entry's state (or the same state when
// terminal, since there is no successor).
func materializeTransitions(trace []runstate.TracePoint, terminalReward float64) []controller.Transition {
	transitions := make([]controller.Transition, len(trace))
	for t, point := range trace {
		isLast := t == len(trace)-1

		reward := 0.0
		nextState := point.State
		if isLast {
			reward = terminalReward
		} else {
			nextState = trace[t+1].State
		}

		transitions[t] = controller.Transition{
			State:     point.State,
			Action:    controller.Action(point.Action),
			Reward:    reward,
			NextState: nextState,
			Terminal:  isLast,
		}
	}
	return transitions
}
