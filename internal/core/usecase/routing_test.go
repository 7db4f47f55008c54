package usecase

import (
	"encoding/json"
	"testing"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

func TestSchemaForCoversEveryCategory(t *testing.T) {
	for _, category := range domain.Categories() {
		schema, err := SchemaFor(category)
		if err != nil {
			t.Fatalf("SchemaFor(%s) error = %v", category, err)
		}
		if schema.Name == "" || len(schema.Fields) == 0 {
			t.Fatalf("SchemaFor(%s) returned incomplete schema %+v", category, schema)
		}
	}
}

func TestSchemaForRejectsUnknownCategory(t *testing.T) {
	if _, err := SchemaFor(domain.FilingCategory("prospectus")); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestSchemasAreDistinctPerCategory(t *testing.T) {
	annual, _ := SchemaFor(domain.CategoryAnnualReport)
	quarterly, _ := SchemaFor(domain.CategoryQuarterlyReport)
	if annual.Fields[0].Name == quarterly.Fields[0].Name {
		t.Fatalf("annual and quarterly schemas share leading field %s", annual.Fields[0].Name)
	}
}

func categorizedEvent(category domain.FilingCategory) domain.CategorizedEvent {
	return domain.CategorizedEvent{
		FilingID:   "f-1",
		LocalPath:  "/tmp/f-1",
		Filename:   "doc.pdf",
		Text:       "text",
		Category:   category,
		Confidence: 0.9,
	}
}

func TestComposeRecordPopulatesMatchingSlotOnly(t *testing.T) {
	cases := []struct {
		category domain.FilingCategory
		raw      string
	}{
		{domain.CategoryAnnualReport, `{"total_revenue":"$1M"}`},
		{domain.CategoryQuarterlyReport, `{"quarterly_revenue":"$250K"}`},
		{domain.CategoryCurrentEventReport, `{"events":[]}`},
	}
	for _, tc := range cases {
		record, err := composeRecord(categorizedEvent(tc.category), json.RawMessage(tc.raw))
		if err != nil {
			t.Fatalf("composeRecord(%s) error = %v", tc.category, err)
		}
		populated := 0
		if record.Annual != nil {
			populated++
		}
		if record.Quarterly != nil {
			populated++
		}
		if record.CurrentEvent != nil {
			populated++
		}
		if populated != 1 {
			t.Fatalf("composeRecord(%s) populated %d slots", tc.category, populated)
		}
		record.ContentHash = domain.ContentHash([]byte("x"))
		if err := record.Validate(); err != nil {
			t.Fatalf("composeRecord(%s) produced invalid record: %v", tc.category, err)
		}
	}
}

func TestComposeRecordToleratesEmptyResult(t *testing.T) {
	record, err := composeRecord(categorizedEvent(domain.CategoryAnnualReport), nil)
	if err != nil {
		t.Fatalf("composeRecord() error = %v", err)
	}
	if record.Annual == nil {
		t.Fatalf("expected annual slot even for empty result")
	}
	if record.Annual.TotalRevenue != nil || record.Annual.NetIncome != nil {
		t.Fatalf("expected every field nil for empty result, got %+v", record.Annual)
	}
}

func TestComposeRecordRejectsMalformedResult(t *testing.T) {
	if _, err := composeRecord(categorizedEvent(domain.CategoryAnnualReport), json.RawMessage(`not json`)); err == nil {
		t.Fatalf("expected error for malformed extraction result")
	}
}

func TestComposeRecordCarriesEventMetadata(t *testing.T) {
	record, err := composeRecord(categorizedEvent(domain.CategoryQuarterlyReport), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("composeRecord() error = %v", err)
	}
	if record.FilingID != "f-1" || record.Filename != "doc.pdf" {
		t.Fatalf("expected filing metadata carried onto record, got %+v", record)
	}
	if record.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", record.Confidence)
	}
}
