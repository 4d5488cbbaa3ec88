// Package graph implements the deliberation graph: a static directed graph
// over START, fanout, one node per role, controller, and END. Role nodes
// for a round execute concurrently via a bounded errgroup; the controller
// node is a barrier that only fires once every role node of the round has
// returned.
package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ahaiya/essaydeliberate/internal/controller"
	"github.com/ahaiya/essaydeliberate/internal/domain"
	"github.com/ahaiya/essaydeliberate/internal/encoder"
	"github.com/ahaiya/essaydeliberate/internal/evaluator"
	"github.com/ahaiya/essaydeliberate/internal/runstate"
)

// Registry is the subset of evalregistry.Registry the graph depends on,
// kept as an interface so tests can substitute scripted evaluators without
// routing through rubric loading or a language-model backend.
type Registry interface {
	Roles() []string
	Get(setID int, role string) (evaluator.Interface, error)
}

// Graph schedules fan-out -> parallel role Evaluators -> barrier ->
// Controller -> conditional loop or terminate.
type Graph struct {
	registry   Registry
	roles      []string
	controller *controller.Controller
	maxRounds  int
}

// New builds a Graph over the registry's configured roles.
func New(registry Registry, ctrl *controller.Controller, maxRounds int) *Graph {
	return &Graph{
		registry:   registry,
		roles:      registry.Roles(),
		controller: ctrl,
		maxRounds:  maxRounds,
	}
}

// ForcedTermination records that an episode was cut off by max_rounds
// rather than a Submit decision. This is not an error path: it is a
// normal terminal path producing a valid reward.
type ForcedTermination struct {
	Round int
}

func (f *ForcedTermination) Error() string {
	return fmt.Sprintf("forced termination at round %d (max_rounds exceeded)", f.Round)
}

// Result is the outcome of running the graph to completion.
type Result struct {
	State          *runstate.State
	ForcedByCutoff bool
}

// Run executes the graph to completion for subject, seeded with the given
// setID (used to key rubric/evaluator lookups) and optional epsilon
// override. It returns the final run state, or an EvaluatorError if any
// role node's call fails (the episode is then considered aborted by the
// caller: no transitions should be materialized from a partial state).
func (g *Graph) Run(ctx context.Context, subject domain.Subject, epsilon *float64) (*Result, error) {
	state := runstate.New(subject, epsilon)
	forced := false

	for {
		previousReviews := state.TailReviews(len(g.roles))

		roundCritiques, err := g.fanout(ctx, subject, previousReviews)
		if err != nil {
			return nil, err
		}
		state.AppendReviews(roundCritiques...)

		route, terminatedByForce := g.controllerNode(state)
		if terminatedByForce {
			forced = true
		}
		if route == routeEnd {
			break
		}
	}

	return &Result{State: state, ForcedByCutoff: forced}, nil
}

// fanout dispatches one Evaluate call per role concurrently, bounded to
// len(roles) in flight, and cancels the round's siblings if any role
// fails.
func (g *Graph) fanout(ctx context.Context, subject domain.Subject, previousReviews []domain.Critique) ([]domain.Critique, error) {
	critiques := make([]domain.Critique, len(g.roles))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(len(g.roles))

	for i, role := range g.roles {
		i, role := i, role
		eg.Go(func() error {
			ev, err := g.registry.Get(subject.Metadata.SetID, role)
			if err != nil {
				return err
			}
			critique, err := ev.Evaluate(egCtx, subject, previousReviews)
			if err != nil {
				return err
			}
			critiques[i] = critique
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return critiques, nil
}

type route int

const (
	routeFanout route = iota
	routeEnd
)

// controllerNode encodes state, selects an action, increments
// current_round, records the decision trace and debug info, then routes.
// It does not itself write to Reviews.
func (g *Graph) controllerNode(state *runstate.State) (route, bool) {
	tail := state.TailReviews(len(g.roles))
	feat := encoder.Encode(tail, state.CurrentRound)

	epsilon := state.EpsilonOrDefault()
	action := g.controller.SelectAction(feat, epsilon)
	q := g.controller.GetQValues(feat)

	state.DQNAction = int(action)
	state.CurrentRound++
	state.AppendTrace(runstate.TracePoint{State: feat, Action: int(action)})

	r, forced := routeAfterDecision(state.CurrentRound, int(action), g.maxRounds)

	state.DQNDebugInfo = &runstate.DebugInfo{
		Round:     state.CurrentRound,
		Action:    int(action),
		QSubmit:   q[controller.ActionSubmit],
		QDebate:   q[controller.ActionDebate],
		Epsilon:   epsilon,
		ForcedEnd: forced,
	}

	return r, forced
}

// routeAfterDecision is the graph's router: a total function of
// (current_round, dqn_action, max_rounds). The max_rounds cutoff takes
// priority over the Controller's own decision.
func routeAfterDecision(currentRound, dqnAction, maxRounds int) (route, bool) {
	if currentRound > maxRounds {
		return routeEnd, true
	}
	if dqnAction == int(controller.ActionDebate) {
		return routeFanout, false
	}
	return routeEnd, false
}
