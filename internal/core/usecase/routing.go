package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// One schema per category, nothing shared and no fallback. Adding a
// category means adding a label and a schema in lockstep; the default
// case in SchemaFor keeps the mapping honest at runtime.

var annualReportSchema = domain.ExtractionSchema{
	Name:         "annual-report",
	Instructions: "Extract financial data from this annual report.",
	Fields: []domain.SchemaField{
		{Name: "total_revenue", Type: "string", Description: "Total revenue for the fiscal year"},
		{Name: "net_income", Type: "string", Description: "Net income for the fiscal year"},
		{Name: "total_assets", Type: "string", Description: "Total assets at the end of the fiscal year"},
		{Name: "total_liabilities", Type: "string", Description: "Total liabilities at the end of the fiscal year"},
	},
}

var quarterlyReportSchema = domain.ExtractionSchema{
	Name:         "quarterly-report",
	Instructions: "Extract quarterly financial data from this quarterly report.",
	Fields: []domain.SchemaField{
		{Name: "quarterly_revenue", Type: "string", Description: "Revenue for the quarter"},
		{Name: "quarterly_net_income", Type: "string", Description: "Net income for the quarter"},
		{Name: "total_assets", Type: "string", Description: "Total assets at the end of the quarter"},
		{Name: "total_liabilities", Type: "string", Description: "Total liabilities at the end of the quarter"},
	},
}

var currentEventSchema = domain.ExtractionSchema{
	Name:         "current-event-report",
	Instructions: "Extract all reported events from this current report, including the event category (item number) and description.",
	Fields: []domain.SchemaField{
		{Name: "events", Type: "array", Description: "List of reported events, each with category and description"},
	},
}

// SchemaFor maps the closed category enumeration to its extraction
// schema. It is total over the known labels; anything else is a bug in
// the categorizer adapter and fails loudly.
func SchemaFor(category domain.FilingCategory) (domain.ExtractionSchema, error) {
	switch category {
	case domain.CategoryAnnualReport:
		return annualReportSchema, nil
	case domain.CategoryQuarterlyReport:
		return quarterlyReportSchema, nil
	case domain.CategoryCurrentEventReport:
		return currentEventSchema, nil
	default:
		return domain.ExtractionSchema{}, fmt.Errorf("no extraction schema for category %q", category)
	}
}

// composeRecord folds a raw extraction result into the envelope record,
// populating only the slot matching the assigned category. A null or
// empty result is still composed: every schema field is optional.
func composeRecord(event domain.CategorizedEvent, raw json.RawMessage) (*domain.ExtractionRecord, error) {
	record := &domain.ExtractionRecord{
		FilingID:   event.FilingID,
		Filename:   event.Filename,
		Category:   event.Category,
		Confidence: event.Confidence,
	}

	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch event.Category {
	case domain.CategoryAnnualReport:
		var data domain.AnnualReportData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode annual report result: %w", err)
		}
		record.Annual = &data
	case domain.CategoryQuarterlyReport:
		var data domain.QuarterlyReportData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode quarterly report result: %w", err)
		}
		record.Quarterly = &data
	case domain.CategoryCurrentEventReport:
		var data domain.CurrentEventData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode current event result: %w", err)
		}
		record.CurrentEvent = &data
	default:
		return nil, fmt.Errorf("no envelope slot for category %q", event.Category)
	}

	return record, nil
}
