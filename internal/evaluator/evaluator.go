// Package evaluator implements the role-bound Evaluator (C1): given a
// subject and optional prior-round critiques, it renders a prompt, calls a
// language-model backend constrained to the Critique schema, and forcibly
// corrects the returned role to the bound role name.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahaiya/essaydeliberate/internal/domain"
	"github.com/ahaiya/essaydeliberate/pkg/attempt"
	"github.com/ahaiya/essaydeliberate/pkg/errs"
	"github.com/ahaiya/essaydeliberate/pkg/retry"
	"github.com/ahaiya/essaydeliberate/pkg/types"
)

// Interface is satisfied by both the production Evaluator and the
// MockEvaluator, letting the Registry (C2) hand either one to the
// deliberation graph's role nodes.
type Interface interface {
	Evaluate(ctx context.Context, subject domain.Subject, previousReviews []domain.Critique) (domain.Critique, error)
	Role() string
}

// Evaluator is fully characterized by a bound role, its rendered system
// prompt, and a sampling temperature.
type Evaluator struct {
	RoleName     string
	SystemPrompt string
	Temperature  float64

	backend  types.Generator
	retryCfg retry.Config
}

// New constructs an Evaluator bound to roleName, using backend to call the
// language model and retryCfg to retry transient backend failures.
func New(roleName, systemPrompt string, temperature float64, backend types.Generator, retryCfg retry.Config) *Evaluator {
	return &Evaluator{
		RoleName:     roleName,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		backend:      backend,
		retryCfg:     retryCfg,
	}
}

// Evaluate renders subject (plus, if nonempty, a compact previousReviews
// history block), calls the backend constrained to the Critique schema,
// and overwrites the returned role with the bound RoleName. Any backend
// failure or schema violation surfaces as an EvaluatorError.
func (e *Evaluator) Evaluate(ctx context.Context, subject domain.Subject, previousReviews []domain.Critique) (domain.Critique, error) {
	userPrompt := subject.Render()
	if len(previousReviews) > 0 {
		userPrompt = domain.RenderHistory(previousReviews) + "\n" + userPrompt
	}

	conv := attempt.NewConversation()
	conv.WithSystem(e.SystemPrompt)
	conv.AddTurn(attempt.NewTurn(userPrompt))

	var critique domain.Critique
	err := retry.Do(ctx, e.retryCfg, func() error {
		msgs, err := e.backend.Generate(ctx, conv, 1)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("evaluator %q: backend returned no messages", e.RoleName)
		}

		parsed, perr := ExtractCritique(msgs[0].Content)
		if perr != nil {
			return perr
		}
		critique = parsed
		return nil
	})
	if err != nil {
		return domain.Critique{}, errs.NewEvaluatorError(e.RoleName, err)
	}

	critique.Role = e.RoleName
	return critique, nil
}

// Role returns the bound role name.
func (e *Evaluator) Role() string {
	return e.RoleName
}

// ExtractCritique parses a Critique out of raw backend output: a direct
// JSON parse first, falling back to locating a balanced JSON object within
// surrounding text (language models routinely wrap structured output in
// prose or code fences).
func ExtractCritique(s string) (domain.Critique, error) {
	s = strings.TrimSpace(s)

	var c domain.Critique
	if err := json.Unmarshal([]byte(s), &c); err == nil {
		return c, nil
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return domain.Critique{}, fmt.Errorf("no JSON object found in backend output")
	}

	depth := 0
	end := -1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return domain.Critique{}, fmt.Errorf("unterminated JSON object in backend output")
	}

	if err := json.Unmarshal([]byte(s[start:end]), &c); err != nil {
		return domain.Critique{}, fmt.Errorf("invalid critique JSON: %w", err)
	}
	return c, nil
}
