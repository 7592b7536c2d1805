// Package cutmarks renders recording intervals as the cut marks Opencast uses
// to discard time when capture was off.
package cutmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ocingest/internal/timeline"
)

// Flavor is the catalog flavor cut marks are uploaded under.
const Flavor = "json/times"

// Mark is one recorded span relative to session start.
type Mark struct {
	BeginMs    int64 `json:"begin"`
	DurationMs int64 `json:"duration"`
}

// Build returns one mark per interval in input order.
func Build(intervals []timeline.Interval, bounds timeline.Bounds) []Mark {
	marks := make([]Mark, 0, len(intervals))
	for _, iv := range intervals {
		marks = append(marks, Mark{
			BeginMs:    bounds.Relative(iv.StartMs),
			DurationMs: iv.DurationMs(),
		})
	}
	return marks
}

// Encode renders marks as an indented JSON array.
func Encode(marks []Mark) ([]byte, error) {
	if marks == nil {
		marks = []Mark{}
	}
	data, err := json.MarshalIndent(marks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cut marks: %w", err)
	}
	return data, nil
}

// Write encodes marks to path, creating the parent directory.
func Write(path string, marks []Mark) error {
	data, err := Encode(marks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cut marks directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cut marks: %w", err)
	}
	return nil
}
