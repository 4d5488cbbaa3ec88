// Package metricslog writes a per-episode CSV metrics log for offline
// analysis, independent of the Prometheus counters exported for live
// operators.
package metricslog

import (
	"encoding/csv"
	"os"
	"strconv"
)

var header = []string{"episode", "reward", "loss", "rounds", "epsilon", "gt", "pred", "reason"}

// Row is one episode's metrics log entry. Reward and Loss are pointers so
// a failed episode can log reward=null.
type Row struct {
	Episode int
	Reward  *float64
	Loss    *float64
	Rounds  int
	Epsilon float64
	GT      float64
	Pred    float64
	Reason  string
}

// Writer appends rows to a CSV file, writing the header once on creation.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Open opens path for appending, writing the header row if the file is new.
func Open(path string) (*Writer, error) {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
	}

	return &Writer{f: f, w: w}, nil
}

// Write appends one row and flushes immediately so a crashed training run
// leaves a readable partial log.
func (mw *Writer) Write(r Row) error {
	record := []string{
		strconv.Itoa(r.Episode),
		formatNullableFloat(r.Reward),
		formatNullableFloat(r.Loss),
		strconv.Itoa(r.Rounds),
		strconv.FormatFloat(r.Epsilon, 'f', -1, 64),
		strconv.FormatFloat(r.GT, 'f', -1, 64),
		strconv.FormatFloat(r.Pred, 'f', -1, 64),
		r.Reason,
	}
	if err := mw.w.Write(record); err != nil {
		return err
	}
	mw.w.Flush()
	return mw.w.Error()
}

// Close flushes and closes the underlying file.
func (mw *Writer) Close() error {
	mw.w.Flush()
	return mw.f.Close()
}

func formatNullableFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
