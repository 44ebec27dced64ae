package plan

import (
	"encoding/csv"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// CsvSharingMode controls how a CSV source's counter is notionally
// shared across virtual users. The present execution path uses a
// single shared counter regardless of mode — see §9's open question —
// so this field is carried for plan-data fidelity but has no distinct
// behavioural effect yet.
type CsvSharingMode string

const (
	CsvSharingAllThreads CsvSharingMode = "all_threads"
	CsvSharingPerThread  CsvSharingMode = "per_thread"
)

// CsvDataSource holds parsed CSV rows plus a monotonic dispensing counter.
type CsvDataSource struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Columns     []string       `json:"columns"`
	Rows        [][]string     `json:"rows"`
	SharingMode CsvSharingMode `json:"sharing_mode,omitempty"`
	Recycle     bool           `json:"recycle"`

	counter uint64
}

// ParseCSVDataSource parses CSV content into a CsvDataSource. Headers
// are trimmed; an empty header row or zero data rows is an error. The
// delimiter is configurable, matching original_source's
// CsvDataSource::from_csv_content, which the distilled spec's "rows"
// description omits.
func ParseCSVDataSource(name, content string, delimiter rune) (*CsvDataSource, error) {
	reader := csv.NewReader(strings.NewReader(content))
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1 // flexible, matching the source's ReaderBuilder

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %q: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv %q has no header row", name)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("csv %q has an empty header row", name)
	}

	rows := records[1:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv %q has no data rows", name)
	}

	return &CsvDataSource{
		ID:          uuid.New().String(),
		Name:        name,
		Columns:     header,
		Rows:        rows,
		SharingMode: CsvSharingAllThreads,
		Recycle:     true,
	}, nil
}

// NextRow advances the shared counter and returns the column→value
// mapping for the row it lands on. With Recycle=true the index wraps
// modulo the row count; with Recycle=false, once the counter exceeds
// the row count, ok is false and the caller should skip the merge.
func (c *CsvDataSource) NextRow() (map[string]string, bool) {
	n := uint64(len(c.Rows))
	if n == 0 {
		return nil, false
	}

	idx := atomic.AddUint64(&c.counter, 1) - 1

	if !c.Recycle && idx >= n {
		return nil, false
	}
	row := c.Rows[idx%n]

	out := make(map[string]string, len(c.Columns))
	for i, col := range c.Columns {
		if i < len(row) {
			out[col] = row[i]
		}
	}
	return out, true
}
