package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ahaiya/essaydeliberate/pkg/config"
)

// CLI is the essaydqn command-line interface.
var CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Train   TrainCmd   `cmd:"" help:"Train the panel-convergence controller over a labeled corpus."`
	Eval    EvalCmd    `cmd:"" help:"Run one deliberation episode against a subject and print its critiques and decision trace."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("essaydqn %s\n", version)
	return nil
}

// TrainCmd runs the training harness from scratch or from a checkpoint.
type TrainCmd struct {
	Config string `help:"Path to the YAML config file." short:"c" required:"" type:"existingfile"`
}

func (t *TrainCmd) Run() error {
	cfg, err := config.Load(t.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rt, cleanup, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	startEpisode := rt.harness.Resume()
	return rt.harness.Run(context.Background(), startEpisode)
}

// EvalCmd runs one deliberation episode greedily (epsilon=0) against a
// single corpus subject and prints the resulting critiques and decision
// trace, without touching the replay buffer or the policy network. With
// --sweep it instead scores every subject in a split and reports aggregate
// reward.
type EvalCmd struct {
	Config string `help:"Path to the YAML config file." short:"c" required:"" type:"existingfile"`
	Split  string `help:"Corpus split to draw the subject from." default:"test" enum:"train,test"`
	Index  int    `help:"Position within the split to evaluate; defaults to the first." default:"0"`
	Sweep  bool   `help:"Score every subject in the split instead of one, reporting aggregate reward."`
}

// evalResult is the JSON shape printed by a single-subject evaluation.
type evalResult struct {
	SubjectID      string  `json:"subject_id"`
	GroundTruth    float64 `json:"ground_truth"`
	RoundsUsed     int     `json:"rounds_used"`
	ForcedByCutoff bool    `json:"forced_by_cutoff"`
	FinalCritiques any     `json:"final_critiques"`
	DecisionTrace  any     `json:"decision_trace"`
}

func (e *EvalCmd) Run() error {
	cfg, err := config.Load(e.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rt, cleanup, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Checkpoint.Path != "" {
		if _, err := rt.ctrl.Load(cfg.Checkpoint.Path); err != nil {
			return fmt.Errorf("loading checkpoint for evaluation: %w", err)
		}
	}

	if e.Sweep {
		summary, err := rt.harness.Evaluate(context.Background(), e.Split)
		if err != nil {
			return err
		}
		fmt.Printf("episodes=%d failed=%d mean_reward=%.4f mean_rounds=%.2f\n",
			summary.Episodes, summary.Failed, summary.MeanReward, summary.MeanRounds)
		return nil
	}

	indices := rt.corpus.SplitIndices(e.Split)
	if e.Index < 0 || e.Index >= len(indices) {
		return fmt.Errorf("index %d out of range for split %q (%d subjects)", e.Index, e.Split, len(indices))
	}
	subject, truth, err := rt.corpus.SubjectAt(indices[e.Index])
	if err != nil {
		return fmt.Errorf("loading subject: %w", err)
	}

	greedy := 0.0
	result, err := rt.graph.Run(context.Background(), subject, &greedy)
	if err != nil {
		return fmt.Errorf("running episode: %w", err)
	}

	roleCount := len(rt.roles)
	var finalCritiques any
	if n := len(result.State.Reviews); roleCount > 0 && n >= roleCount {
		finalCritiques = result.State.Reviews[n-roleCount:]
	}

	out := evalResult{
		SubjectID:      subject.SubjectID,
		GroundTruth:    truth,
		RoundsUsed:     result.State.CurrentRound - 1,
		ForcedByCutoff: result.ForcedByCutoff,
		FinalCritiques: finalCritiques,
		DecisionTrace:  result.State.DQNTrace,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
