// Package evalregistry implements the Evaluator Registry (C2): it caches
// and constructs Evaluators keyed by (set id, role), injecting rubric text
// into the role's prompt template. In mock-training mode it returns a
// deterministic Mock Evaluator keyed only by role, bypassing rubric
// loading and the language-model backend entirely.
package evalregistry

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"

	"github.com/ahaiya/essaydeliberate/internal/evaluator"
	"github.com/ahaiya/essaydeliberate/internal/mockeval"
	"github.com/ahaiya/essaydeliberate/internal/rubrics"
	"github.com/ahaiya/essaydeliberate/pkg/config"
	"github.com/ahaiya/essaydeliberate/pkg/retry"
	"github.com/ahaiya/essaydeliberate/pkg/types"
)

// key identifies one cache slot. In mock mode SetID is always 0, since the
// mock evaluator is keyed only by role.
type key struct {
	SetID int
	Role  string
}

// Registry caches Evaluators by (set id, role), write-through on miss and
// guarded by a single mutex so the rubric file for a given key is read at
// most once even under parallelized episodes.
type Registry struct {
	mu       sync.Mutex
	cache    map[key]evaluator.Interface
	agents   []config.AgentConfig
	mockMode bool
	sim      config.SimulationConfig
	rubrics  *rubrics.Loader
	backend  types.Generator
	retryCfg retry.Config

	// mockSeed is drawn once from the caller's rng at construction and
	// combined with each role's name to derive that role's own
	// independent *rand.Rand (see roleSeed). Mock evaluators never share
	// a single *rand.Rand: the deliberation graph fans role nodes out
	// concurrently, and math/rand.Rand is not safe for concurrent use.
	mockSeed int64

	onRubricMissing func(err error)
}

// New builds a Registry. backend and rubricsLoader are unused (and may be
// nil) when cfg.RunMode is mock_training. rng seeds the per-role mock
// evaluator RNGs deterministically; it is drawn from once here and never
// touched again, so it need not be safe for concurrent use itself.
func New(cfg *config.Config, rubricsLoader *rubrics.Loader, backend types.Generator, retryCfg retry.Config, rng *rand.Rand, onRubricMissing func(err error)) *Registry {
	r := &Registry{
		cache:           make(map[key]evaluator.Interface),
		agents:          cfg.Agents,
		mockMode:        cfg.RunMode == config.RunModeMockTraining,
		rubrics:         rubricsLoader,
		backend:         backend,
		retryCfg:        retryCfg,
		mockSeed:        rng.Int63(),
		onRubricMissing: onRubricMissing,
	}
	if cfg.Simulation != nil {
		r.sim = *cfg.Simulation
	}
	return r
}

// Roles returns the configured role names, in configuration order.
func (r *Registry) Roles() []string {
	roles := make([]string, len(r.agents))
	for i, a := range r.agents {
		roles[i] = a.Name
	}
	return roles
}

// Get returns the Evaluator bound to (setID, role), constructing and
// caching it on first use.
func (r *Registry) Get(setID int, role string) (evaluator.Interface, error) {
	cacheKey := key{SetID: setID, Role: role}
	if r.mockMode {
		cacheKey.SetID = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ev, ok := r.cache[cacheKey]; ok {
		return ev, nil
	}

	agent, ok := r.findAgent(role)
	if !ok {
		return nil, fmt.Errorf("evalregistry: role %q is not configured", role)
	}

	var ev evaluator.Interface
	if r.mockMode {
		ev = mockeval.New(role, mockeval.Config{
			ConvergenceRate:  r.sim.ConvergenceRate,
			NoiseLevel:       r.sim.NoiseLevel,
			ConvergenceSpeed: r.sim.ConvergenceSpeed,
		}, rand.New(rand.NewSource(roleSeed(r.mockSeed, role))))
	} else {
		rubricText, err := r.rubrics.Load(setID)
		if err != nil && r.onRubricMissing != nil {
			r.onRubricMissing(err)
		}
		systemPrompt := strings.ReplaceAll(agent.SystemPromptTemplate, "{rubric_content}", rubricText)
		ev = evaluator.New(role, systemPrompt, agent.Temperature, r.backend, r.retryCfg)
	}

	r.cache[cacheKey] = ev
	return ev, nil
}

// roleSeed derives a deterministic per-role seed from base and role so
// that every mock evaluator gets its own independent *rand.Rand regardless
// of the order in which roles are first constructed, preserving the
// fixed-seed reproducibility the training harness relies on even though
// role nodes are constructed lazily from concurrent goroutines.
func roleSeed(base int64, role string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(role))
	return base ^ int64(h.Sum64())
}

func (r *Registry) findAgent(role string) (config.AgentConfig, bool) {
	for _, a := range r.agents {
		if a.Name == role {
			return a, true
		}
	}
	return config.AgentConfig{}, false
}
