package domain

import (
	"fmt"
	"time"
)

type FilingStatus string

const (
	StatusUploaded   FilingStatus = "uploaded"
	StatusProcessing FilingStatus = "processing"
	StatusReady      FilingStatus = "ready"
	StatusFailed     FilingStatus = "failed"
)

// FilingCategory is the closed set of filing types the pipeline knows.
// Every readable document is assigned exactly one of these; there is no
// "unknown" outcome, low confidence is a separate signal.
type FilingCategory string

const (
	CategoryAnnualReport       FilingCategory = "annual_report"
	CategoryQuarterlyReport    FilingCategory = "quarterly_report"
	CategoryCurrentEventReport FilingCategory = "current_event_report"
)

// Categories lists every known category. Routing code ranges over this
// to stay in lockstep with the constants above.
func Categories() []FilingCategory {
	return []FilingCategory{
		CategoryAnnualReport,
		CategoryQuarterlyReport,
		CategoryCurrentEventReport,
	}
}

func ParseFilingCategory(raw string) (FilingCategory, error) {
	switch FilingCategory(raw) {
	case CategoryAnnualReport, CategoryQuarterlyReport, CategoryCurrentEventReport:
		return FilingCategory(raw), nil
	default:
		return "", fmt.Errorf("unknown filing category: %q", raw)
	}
}

type Filing struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	MimeType    string       `json:"mime_type"`
	StoragePath string       `json:"storage_path"`
	Category    string       `json:"category,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
	RecordID    string       `json:"record_id,omitempty"`
	Status      FilingStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Categorization is the categorizer collaborator output: one label plus
// a confidence in [0,1]. Confidence is propagated, never thresholded
// here; rejection policy belongs to downstream consumers.
type Categorization struct {
	Category   FilingCategory `json:"category"`
	Confidence float64        `json:"confidence"`
}
