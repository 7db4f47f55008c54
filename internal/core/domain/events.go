package domain

import "fmt"

// Stage events are the immutable messages passed down the pipeline.
// Each event carries everything its producer knew plus what the stage
// added, so no information is dropped as the run advances. A stage
// validates its input event before doing any work; a missing required
// field is a programming error surfaced immediately, never defaulted.

type ReceivedEvent struct {
	FilingID string
}

func (e ReceivedEvent) Validate() error {
	if e.FilingID == "" {
		return fmt.Errorf("received event: %w: missing filing id", ErrInvalidInput)
	}
	return nil
}

type DownloadedEvent struct {
	FilingID  string
	LocalPath string
	Filename  string
}

func (e DownloadedEvent) Validate() error {
	if e.FilingID == "" || e.LocalPath == "" || e.Filename == "" {
		return fmt.Errorf("downloaded event: %w: filing id, local path and filename are required", ErrInvalidInput)
	}
	return nil
}

type NormalizedEvent struct {
	FilingID  string
	LocalPath string
	Filename  string
	Text      string
}

func (e NormalizedEvent) Validate() error {
	if e.FilingID == "" || e.LocalPath == "" || e.Filename == "" {
		return fmt.Errorf("normalized event: %w: filing id, local path and filename are required", ErrInvalidInput)
	}
	if e.Text == "" {
		return fmt.Errorf("normalized event: %w: empty normalized text", ErrInvalidInput)
	}
	return nil
}

type CategorizedEvent struct {
	FilingID   string
	LocalPath  string
	Filename   string
	Text       string
	Category   FilingCategory
	Confidence float64
}

func (e CategorizedEvent) Validate() error {
	if e.FilingID == "" || e.LocalPath == "" || e.Filename == "" || e.Text == "" {
		return fmt.Errorf("categorized event: %w: upstream fields are required", ErrInvalidInput)
	}
	if _, err := ParseFilingCategory(string(e.Category)); err != nil {
		return fmt.Errorf("categorized event: %w: %w", ErrInvalidInput, err)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("categorized event: %w: confidence %v outside [0,1]", ErrInvalidInput, e.Confidence)
	}
	return nil
}

type ExtractedEvent struct {
	FilingID   string
	LocalPath  string
	Filename   string
	Text       string
	Category   FilingCategory
	Confidence float64
	Record     *ExtractionRecord
}

func (e ExtractedEvent) Validate() error {
	if e.FilingID == "" || e.LocalPath == "" || e.Filename == "" || e.Text == "" {
		return fmt.Errorf("extracted event: %w: upstream fields are required", ErrInvalidInput)
	}
	if e.Record == nil {
		return fmt.Errorf("extracted event: %w: missing extraction record", ErrInvalidInput)
	}
	if err := e.Record.Validate(); err != nil {
		return fmt.Errorf("extracted event: %w: %w", ErrInvalidInput, err)
	}
	return nil
}
