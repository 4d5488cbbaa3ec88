// Package domain defines the data types that flow through the deliberation
// graph: the immutable Subject under evaluation and the Critique each
// evaluator produces for it.
package domain

import (
	"fmt"
	"strings"
)

// ArtifactType identifies the kind of content an Artifact carries.
type ArtifactType string

const (
	ArtifactTextContent  ArtifactType = "text_content"
	ArtifactSourceCode   ArtifactType = "source_code"
	ArtifactConversation ArtifactType = "conversation"
	ArtifactDocument     ArtifactType = "document"
	ArtifactOther        ArtifactType = "other"
)

// Artifact is one piece of content attached to a Subject.
type Artifact struct {
	Type        ArtifactType
	Content     string
	Filename    string
	Description string
}

// Metadata carries the fields corpus loading attaches to every Subject.
type Metadata struct {
	SetID         int
	RawMaxScore   float64
	Context       string
	OriginalScore float64
}

// Subject is immutable for the duration of one episode.
type Subject struct {
	SubjectID     string
	Artifacts     []Artifact
	ReferenceText string
	Metadata      Metadata
}

// Render produces the deterministic markdown context used to prompt
// Evaluators. Artifact order is preserved; no randomness is introduced.
func (s Subject) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Subject %s\n\n", s.SubjectID)

	if s.Metadata.Context != "" {
		fmt.Fprintf(&b, "## Prompt\n\n%s\n\n", s.Metadata.Context)
	}

	if s.ReferenceText != "" {
		fmt.Fprintf(&b, "## Reference Material\n\n%s\n\n", s.ReferenceText)
	}

	for i, a := range s.Artifacts {
		fmt.Fprintf(&b, "## Artifact %d (%s)", i+1, a.Type)
		if a.Filename != "" {
			fmt.Fprintf(&b, " — %s", a.Filename)
		}
		b.WriteString("\n\n")
		if a.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", a.Description)
		}
		fmt.Fprintf(&b, "```\n%s\n```\n\n", a.Content)
	}

	return b.String()
}

// ScoreItem is one per-indicator score within a Critique.
type ScoreItem struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	Evidence  string  `json:"evidence"`
	Comment   string  `json:"comment"`
}

// Critique is the structured output of one Evaluator call.
type Critique struct {
	Role          string      `json:"role"`
	ThoughtProcess string     `json:"thought_process"`
	Scores        []ScoreItem `json:"scores"`
	OverallScore  float64     `json:"overall_score"`
	Confidence    float64     `json:"confidence"`
}

// RenderHistory produces the compact history block prepended to a role's
// prompt when previous-round critiques are available: role, overall score,
// and a truncated rationale for each.
func RenderHistory(critiques []Critique) string {
	if len(critiques) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Prior Round Critiques\n\n")
	for _, c := range critiques {
		rationale := c.ThoughtProcess
		const maxLen = 280
		if len(rationale) > maxLen {
			rationale = rationale[:maxLen] + "..."
		}
		fmt.Fprintf(&b, "- **%s** scored %.2f: %s\n", c.Role, c.OverallScore, rationale)
	}
	return b.String()
}
