package domain

import (
	"fmt"
	"time"
)

// AnnualReportData holds figures extracted from an annual report.
// Every field is optional: the extractor returns null for anything it
// cannot locate, and a fully empty result is still a valid result.
type AnnualReportData struct {
	TotalRevenue     *string `json:"total_revenue"`
	NetIncome        *string `json:"net_income"`
	TotalAssets      *string `json:"total_assets"`
	TotalLiabilities *string `json:"total_liabilities"`
}

// QuarterlyReportData holds figures extracted from a quarterly report.
type QuarterlyReportData struct {
	QuarterlyRevenue   *string `json:"quarterly_revenue"`
	QuarterlyNetIncome *string `json:"quarterly_net_income"`
	TotalAssets        *string `json:"total_assets"`
	TotalLiabilities   *string `json:"total_liabilities"`
}

// ReportedEvent is a single item-numbered disclosure in a current
// event report.
type ReportedEvent struct {
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

// CurrentEventData holds the disclosures extracted from a current
// event report.
type CurrentEventData struct {
	Events []ReportedEvent `json:"events"`
}

// ExtractionRecord is the one persisted envelope shape shared by all
// categories. Exactly one of the three data slots is populated, and it
// always matches Category; downstream consumers get a stable shape no
// matter which category was detected.
type ExtractionRecord struct {
	ID          string         `json:"id"`
	FilingID    string         `json:"filing_id"`
	Filename    string         `json:"filename"`
	ContentHash string         `json:"content_hash"`
	Category    FilingCategory `json:"category"`
	Confidence  float64        `json:"confidence"`

	Annual       *AnnualReportData    `json:"annual_report_data,omitempty"`
	Quarterly    *QuarterlyReportData `json:"quarterly_report_data,omitempty"`
	CurrentEvent *CurrentEventData    `json:"current_event_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces the envelope invariant: exactly one populated slot,
// matching the assigned category.
func (r *ExtractionRecord) Validate() error {
	if _, err := ParseFilingCategory(string(r.Category)); err != nil {
		return err
	}
	if r.ContentHash == "" {
		return fmt.Errorf("extraction record missing content hash")
	}

	populated := 0
	if r.Annual != nil {
		populated++
	}
	if r.Quarterly != nil {
		populated++
	}
	if r.CurrentEvent != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("extraction record must populate exactly one category slot, got %d", populated)
	}

	switch r.Category {
	case CategoryAnnualReport:
		if r.Annual == nil {
			return fmt.Errorf("category %s without annual slot", r.Category)
		}
	case CategoryQuarterlyReport:
		if r.Quarterly == nil {
			return fmt.Errorf("category %s without quarterly slot", r.Category)
		}
	case CategoryCurrentEventReport:
		if r.CurrentEvent == nil {
			return fmt.Errorf("category %s without current event slot", r.Category)
		}
	}
	return nil
}
