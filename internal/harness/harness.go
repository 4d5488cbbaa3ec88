// Package harness implements the Training Harness (C7): it drives the
// deliberation graph over a labeled corpus, turns each episode into a
// trajectory of transitions with sparse terminal reward, performs
// Controller gradient updates, and supports checkpoint-resume.
package harness

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"

	"github.com/ahaiya/essaydeliberate/internal/controller"
	"github.com/ahaiya/essaydeliberate/internal/domain"
	"github.com/ahaiya/essaydeliberate/internal/graph"
	"github.com/ahaiya/essaydeliberate/internal/metricslog"
	"github.com/ahaiya/essaydeliberate/pkg/metrics"
)

// CorpusProvider is the subset of corpus.Loader the harness depends on,
// kept as an interface so tests can substitute an in-memory corpus.
type CorpusProvider interface {
	SplitIndices(split string) []int
	SubjectAt(i int) (domain.Subject, float64, error)
}

// Config parameterizes one training run.
type Config struct {
	TotalEpisodes   int
	BatchSize       int
	EpsilonStart    float64
	EpsilonEnd      float64
	EpsilonDecay    float64
	CheckpointEvery int
	CheckpointPath  string
}

// Harness drives the episode loop.
type Harness struct {
	graph   *graph.Graph
	ctrl    *controller.Controller
	corpus  CorpusProvider
	metrics *metrics.Metrics
	log     *metricslog.Writer
	cfg     Config
	rng     *rand.Rand
}

// New builds a Harness.
func New(g *graph.Graph, ctrl *controller.Controller, corpus CorpusProvider, promMetrics *metrics.Metrics, metricsLog *metricslog.Writer, cfg Config, rng *rand.Rand) *Harness {
	return &Harness{
		graph:   g,
		ctrl:    ctrl,
		corpus:  corpus,
		metrics: promMetrics,
		log:     metricsLog,
		cfg:     cfg,
		rng:     rng,
	}
}

// Resume attempts to load a checkpoint, returning the episode index to
// start from. A load failure degrades to "start fresh" from episode 0,
// logged but never fatal.
func (h *Harness) Resume() int {
	if h.cfg.CheckpointPath == "" {
		return 0
	}
	next, err := h.ctrl.Load(h.cfg.CheckpointPath)
	if err != nil {
		slog.Info("no usable checkpoint, starting fresh", "path", h.cfg.CheckpointPath, "err", err)
		return 0
	}
	slog.Info("resumed from checkpoint", "path", h.cfg.CheckpointPath, "next_episode", next)
	return next
}

// Run drives the episode loop from startEpisode through cfg.TotalEpisodes,
// or until ctx is cancelled.
func (h *Harness) Run(ctx context.Context, startEpisode int) error {
	trainIndices := h.corpus.SplitIndices("train")
	if len(trainIndices) == 0 {
		return errors.New("harness: empty training split")
	}

	for episode := startEpisode; episode < h.cfg.TotalEpisodes; episode++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := h.runEpisode(ctx, episode, trainIndices); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			// Evaluator or corpus failure: log and continue to the next episode.
			slog.Warn("episode aborted", "episode", episode, "err", err)
			h.metrics.EpisodesFailed++
			h.metrics.EpisodesTotal++
			if werr := h.log.Write(metricslog.Row{Episode: episode, Reason: err.Error()}); werr != nil {
				slog.Warn("failed to write metrics row", "episode", episode, "err", werr)
			}
			continue
		}

		h.metrics.EpisodesTotal++

		if h.cfg.CheckpointEvery > 0 && (episode+1)%h.cfg.CheckpointEvery == 0 {
			h.checkpoint(episode + 1)
		}
	}

	h.checkpoint(h.cfg.TotalEpisodes)
	return nil
}

func (h *Harness) checkpoint(nextEpisode int) {
	if h.cfg.CheckpointPath == "" {
		return
	}
	if err := h.ctrl.Save(h.cfg.CheckpointPath, nextEpisode); err != nil {
		slog.Warn("checkpoint write failed, skipping", "err", err)
		return
	}
	h.metrics.CheckpointsWritten++
}

// runEpisode runs one episode: sample a subject, drive the graph,
// compute reward, materialize transitions, and take one gradient step.
func (h *Harness) runEpisode(ctx context.Context, episode int, trainIndices []int) error {
	idx := trainIndices[h.rng.Intn(len(trainIndices))]
	subject, truth, err := h.corpus.SubjectAt(idx)
	if err != nil {
		return err
	}

	epsilon := epsilonSchedule(episode, h.cfg.EpsilonStart, h.cfg.EpsilonEnd, h.cfg.EpsilonDecay)

	result, err := h.graph.Run(ctx, subject, &epsilon)
	if err != nil {
		return err
	}

	roundsCompleted := result.State.CurrentRound - 1
	pred := meanOverall(finalRoundOverallScores(result.State.Reviews, roundsCompleted))
	roundsUsed := roundsCompleted
	if roundsUsed < 1 {
		roundsUsed = 1
	}
	reward := computeReward(pred, truth, roundsUsed)

	transitions := materializeTransitions(result.State.DQNTrace, reward)
	for _, t := range transitions {
		h.ctrl.StoreTransition(t)
	}

	var lossPtr *float64
	if loss := h.ctrl.UpdatePolicy(h.cfg.BatchSize); loss != nil {
		lossPtr = loss
		h.metrics.PolicyUpdates++
	}

	h.metrics.RoundsTotal += int64(roundsUsed)

	rewardCopy := reward
	reason := ""
	if err := h.log.Write(metricslog.Row{
		Episode: episode,
		Reward:  &rewardCopy,
		Loss:    lossPtr,
		Rounds:  roundsUsed,
		Epsilon: epsilon,
		GT:      truth,
		Pred:    safeZero(pred),
		Reason:  reason,
	}); err != nil {
		slog.Warn("failed to write metrics row", "episode", episode, "err", err)
	}

	return nil
}

// finalRoundOverallScores returns the overall scores of the final round's
// critiques, inferring the role count from the total critiques accumulated
// over roundsCompleted rounds. Returns nil if roundsCompleted is 0 (no
// round ever completed, e.g. an immediate forced cutoff at max_rounds=0).
func finalRoundOverallScores(reviews []domain.Critique, roundsCompleted int) []float64 {
	if roundsCompleted <= 0 || len(reviews) == 0 {
		return nil
	}
	roleCount := len(reviews) / roundsCompleted
	if roleCount <= 0 || roleCount > len(reviews) {
		return nil
	}
	tail := reviews[len(reviews)-roleCount:]
	scores := make([]float64, len(tail))
	for i, c := range tail {
		scores[i] = c.OverallScore
	}
	return scores
}

func safeZero(v float64) float64 {
	if v != v { // NaN check without importing math twice
		return 0
	}
	return v
}
