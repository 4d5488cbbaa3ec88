// Package rubrics loads per-set rubric text from disk, substituting a
// placeholder when a rubric file is missing rather than failing.
package rubrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahaiya/essaydeliberate/pkg/errs"
)

const placeholder = "(no rubric available for this essay set; evaluate against general writing quality standards)"

// Loader reads rubric text from dir/set_<N>.md files.
type Loader struct {
	dir string
}

// NewLoader builds a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads the rubric for setID. A missing file is non-fatal: it returns
// the placeholder text and a RubricMissing error the caller should log and
// discard.
func (l *Loader) Load(setID int) (string, error) {
	path := filepath.Join(l.dir, fmt.Sprintf("set_%d.md", setID))
	data, err := os.ReadFile(path)
	if err != nil {
		return placeholder, errs.NewRubricMissing(setID, path, err)
	}
	return string(data), nil
}
