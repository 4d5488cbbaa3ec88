// Package corpus loads the ASAP-style labeled essay corpus: a tab-separated
// submissions file plus a JSON metadata sidecar describing per-set score
// ranges, prompts, and optional source texts.
package corpus

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ahaiya/essaydeliberate/internal/domain"
	"github.com/ahaiya/essaydeliberate/pkg/errs"
)

// metadata mirrors the JSON sidecar: {score_ranges, prompts, source_texts},
// all keyed by stringified set id.
type metadata struct {
	ScoreRanges map[string]float64 `json:"score_ranges"`
	Prompts     map[string]string  `json:"prompts"`
	SourceTexts map[string]string  `json:"source_texts"`
}

// row is one parsed line of the TSV submissions file.
type row struct {
	essayID       string
	essaySet      int
	essay         string
	domain1Score  float64
}

// Loader loads and indexes the corpus, producing rendered Subjects and their
// rescaled ground-truth scores on demand.
type Loader struct {
	tsvPath      string
	metadataPath string
	targetMax    float64

	meta metadata
	rows []row
}

// NewLoader constructs a Loader. targetMax is the configured
// global_settings.score_range upper bound used to rescale raw scores.
func NewLoader(tsvPath, metadataPath string, targetMax float64) *Loader {
	return &Loader{tsvPath: tsvPath, metadataPath: metadataPath, targetMax: targetMax}
}

// Load reads the metadata sidecar and the TSV submissions file, dropping
// rows with a missing domain1_score.
func (l *Loader) Load() error {
	if err := l.loadMetadata(); err != nil {
		return errs.NewConfigError("corpus.loadMetadata", err)
	}
	if err := l.loadDataset(); err != nil {
		return errs.NewConfigError("corpus.loadDataset", err)
	}
	return nil
}

func (l *Loader) loadMetadata() error {
	f, err := os.Open(l.metadataPath)
	if err != nil {
		return fmt.Errorf("metadata file missing: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&l.meta); err != nil {
		return fmt.Errorf("invalid metadata json: %w", err)
	}
	return nil
}

func (l *Loader) loadDataset() error {
	f, err := os.Open(l.tsvPath)
	if err != nil {
		return fmt.Errorf("corpus tsv missing: %w", err)
	}
	defer f.Close()

	decoder := charmap.ISO8859_1.NewDecoder()
	reader := csv.NewReader(transform.NewReader(f, decoder))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("corpus tsv is empty")
		}
		return fmt.Errorf("failed reading corpus header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"essay_id", "essay_set", "essay", "domain1_score"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("corpus tsv missing required column %q", required)
		}
	}

	var rows []row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed reading corpus row: %w", err)
		}

		scoreStr := record[col["domain1_score"]]
		if scoreStr == "" {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		setID, err := strconv.Atoi(record[col["essay_set"]])
		if err != nil {
			continue
		}

		rows = append(rows, row{
			essayID:      record[col["essay_id"]],
			essaySet:     setID,
			essay:        record[col["essay"]],
			domain1Score: score,
		})
	}

	l.rows = rows
	return nil
}

// Len returns the number of loaded rows.
func (l *Loader) Len() int {
	return len(l.rows)
}

// SplitIndices returns the indices belonging to "train" or any other value
// for "test", via a deterministic 80/20 shuffle-split seeded at 42.
func (l *Loader) SplitIndices(split string) []int {
	n := len(l.rows)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	splitPoint := int(float64(n) * 0.8)
	if split == "train" {
		return indices[:splitPoint]
	}
	return indices[splitPoint:]
}

// SubjectAt renders the row at index i into a Subject and returns its
// rescaled ground-truth score on [0, targetMax].
func (l *Loader) SubjectAt(i int) (domain.Subject, float64, error) {
	if i < 0 || i >= len(l.rows) {
		return domain.Subject{}, 0, fmt.Errorf("corpus index %d out of range [0,%d)", i, len(l.rows))
	}
	r := l.rows[i]

	setIDStr := strconv.Itoa(r.essaySet)
	maxScore, ok := l.meta.ScoreRanges[setIDStr]
	if !ok || maxScore == 0 {
		maxScore = 10
	}
	promptText, ok := l.meta.Prompts[setIDStr]
	if !ok {
		promptText = "Unknown Topic"
	}
	sourceText := l.meta.SourceTexts[setIDStr]

	normScore := (r.domain1Score / maxScore) * l.targetMax
	normScore = math.Max(0, math.Min(l.targetMax, normScore))

	subject := domain.Subject{
		SubjectID:     fmt.Sprintf("Set%d_ID%s", r.essaySet, r.essayID),
		ReferenceText: sourceText,
		Metadata: domain.Metadata{
			SetID:         r.essaySet,
			RawMaxScore:   maxScore,
			Context:       promptText,
			OriginalScore: r.domain1Score,
		},
		Artifacts: []domain.Artifact{
			{
				Type:        domain.ArtifactTextContent,
				Filename:    fmt.Sprintf("essay_set_%d.txt", r.essaySet),
				Content:     r.essay,
				Description: fmt.Sprintf("Student Essay (Set %d)", r.essaySet),
			},
		},
	}

	return subject, normScore, nil
}
