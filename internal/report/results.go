// Package report reconciles the JSON result batches emitted by the custom
// result formatter against the test tree, and formats failure details for
// status events.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/report/schema"
)

// ResultBatch is one JSON document produced by the result formatter between
// the output markers. A run produces exactly zero or one batch.
type ResultBatch struct {
	Version  string       `json:"version"`
	Examples []TestResult `json:"examples"`
	Summary  *Summary     `json:"summary,omitempty"`
}

// TestResult is one example's authoritative result. Optional fields are
// pointers; the formatter omits them freely and decoding never assumes
// presence.
type TestResult struct {
	ID              string     `json:"id"`
	Description     string     `json:"description"`
	FullDescription string     `json:"full_description"`
	FilePath        string     `json:"file_path"`
	LineNumber      int        `json:"line_number"`
	Status          string     `json:"status,omitempty"`
	DurationSec     *float64   `json:"duration,omitempty"`
	Exception       *Exception `json:"exception,omitempty"`
	PendingMessage  *string    `json:"pending_message,omitempty"`
}

// Exception carries the failure metadata of a failed or errored example.
type Exception struct {
	Class     string   `json:"class"`
	Message   string   `json:"message"`
	Backtrace []string `json:"backtrace,omitempty"`
}

// Summary aggregates the run. Only duration and the counts are consumed.
type Summary struct {
	Duration     float64 `json:"duration"`
	ExampleCount int     `json:"example_count"`
	FailureCount int     `json:"failure_count"`
	PendingCount int     `json:"pending_count"`
	ErrorCount   int     `json:"errors_outside_of_examples_count"`
}

// DecodeBatch validates and decodes a result document. Any failure here is
// fatal to the batch only: the caller leaves the tree untouched.
func DecodeBatch(doc []byte) (*ResultBatch, error) {
	if err := schema.ValidateResults(doc); err != nil {
		return nil, fmt.Errorf("result batch rejected by schema: %w", err)
	}

	var batch ResultBatch
	if err := json.Unmarshal(doc, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode result batch: %w", err)
	}

	return &batch, nil
}
