// Package record provides the analysis record aggregate and its persistence
// ports. A record summarizes one finished analysis; the full report document
// lives in storage, the record only points at it.
package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// Status represents the outcome of an analysis.
type Status string

const (
	// StatusCompleted indicates the analysis produced a report.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the analysis aborted with an error.
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is a known outcome.
func (s Status) IsValid() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidRecord is returned when a record fails construction validation.
var ErrInvalidRecord = errors.New("invalid record")

// Record summarizes one finished analysis. Records are terminal: they are
// built once, validated, and never mutated afterwards. Repositories clone on
// read and write so handed-out copies stay independent.
type Record struct {
	// ID is the analysis identifier, shared with the stored report.
	ID string
	// Filename is the original name of the uploaded file.
	Filename string
	// Status is the analysis outcome.
	Status Status
	// Duration is the analyzed audio length in seconds.
	Duration float64
	// PrimaryEmotion is the journey's primary emotion.
	PrimaryEmotion emotion.Label
	// ReportPath is where the report document is stored locally.
	ReportPath string
	// ReportURL is the archive URL when the report was pushed to S3.
	ReportURL string
	// Error holds the failure message for failed analyses.
	Error string
	// CreatedAt is when the record was created.
	CreatedAt time.Time
	// CompletedAt is when the analysis finished.
	CompletedAt time.Time
}

// NewCompleted builds a validated record for a successful analysis.
func NewCompleted(id, filename string, duration float64, primary emotion.Label, reportPath, reportURL string) (*Record, error) {
	now := time.Now()
	r := &Record{
		ID:             id,
		Filename:       filename,
		Status:         StatusCompleted,
		Duration:       duration,
		PrimaryEmotion: primary,
		ReportPath:     reportPath,
		ReportURL:      reportURL,
		CreatedAt:      now,
		CompletedAt:    now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewFailed builds a validated record for an analysis that aborted.
func NewFailed(id, filename, message string) (*Record, error) {
	now := time.Now()
	r := &Record{
		ID:          id,
		Filename:    filename,
		Status:      StatusFailed,
		Error:       message,
		CreatedAt:   now,
		CompletedAt: now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the record invariants for its status.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if r.Filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidRecord)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}

	switch r.Status {
	case StatusCompleted:
		if r.Duration <= 0 {
			return fmt.Errorf("%w: completed record needs a duration", ErrInvalidRecord)
		}
		if !r.PrimaryEmotion.IsValid() {
			return fmt.Errorf("%w: completed record needs a primary emotion", ErrInvalidRecord)
		}
		if r.ReportPath == "" {
			return fmt.Errorf("%w: completed record needs a report path", ErrInvalidRecord)
		}
	case StatusFailed:
		if r.Error == "" {
			return fmt.Errorf("%w: failed record needs an error message", ErrInvalidRecord)
		}
	}
	return nil
}

// Clone creates a copy of the record for safe hand-out.
func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}
