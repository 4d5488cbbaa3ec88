package harness

import (
	"context"
	"log/slog"

	"github.com/ahaiya/essaydeliberate/internal/metricslog"
)

// EvalSummary aggregates one evaluation pass over a corpus split.
type EvalSummary struct {
	Episodes   int
	Failed     int
	MeanReward float64
	MeanRounds float64
}

// Evaluate drives the graph greedily (epsilon=0) over every subject in
// split, without storing transitions or updating the policy. It is the
// deterministic counterpart to Run, used to score a trained checkpoint.
func (h *Harness) Evaluate(ctx context.Context, split string) (EvalSummary, error) {
	indices := h.corpus.SplitIndices(split)
	summary := EvalSummary{}

	var rewardSum, roundsSum float64
	for _, idx := range indices {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		subject, truth, err := h.corpus.SubjectAt(idx)
		if err != nil {
			summary.Failed++
			continue
		}

		greedy := 0.0
		result, err := h.graph.Run(ctx, subject, &greedy)
		if err != nil {
			slog.Warn("eval episode aborted", "index", idx, "err", err)
			summary.Failed++
			continue
		}

		roundsCompleted := result.State.CurrentRound - 1
		pred := meanOverall(finalRoundOverallScores(result.State.Reviews, roundsCompleted))
		roundsUsed := roundsCompleted
		if roundsUsed < 1 {
			roundsUsed = 1
		}
		reward := computeReward(pred, truth, roundsUsed)

		rewardCopy := reward
		if err := h.log.Write(metricslog.Row{
			Episode: summary.Episodes,
			Reward:  &rewardCopy,
			Rounds:  roundsUsed,
			Epsilon: 0,
			GT:      truth,
			Pred:    safeZero(pred),
			Reason:  "eval",
		}); err != nil {
			slog.Warn("failed to write eval metrics row", "index", idx, "err", err)
		}

		summary.Episodes++
		rewardSum += reward
		roundsSum += float64(roundsUsed)
	}

	if summary.Episodes > 0 {
		summary.MeanReward = rewardSum / float64(summary.Episodes)
		summary.MeanRounds = roundsSum / float64(summary.Episodes)
	}
	return summary, nil
}
