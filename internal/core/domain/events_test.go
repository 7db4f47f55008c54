package domain

import "testing"

func TestReceivedEventValidate(t *testing.T) {
	if err := (ReceivedEvent{FilingID: "f-1"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	err := (ReceivedEvent{}).Validate()
	if err == nil {
		t.Fatalf("expected error for missing filing id")
	}
	if !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestDownloadedEventRequiresEveryUpstreamField(t *testing.T) {
	valid := DownloadedEvent{FilingID: "f-1", LocalPath: "/tmp/x", Filename: "a.pdf"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := []DownloadedEvent{
		{LocalPath: "/tmp/x", Filename: "a.pdf"},
		{FilingID: "f-1", Filename: "a.pdf"},
		{FilingID: "f-1", LocalPath: "/tmp/x"},
	}
	for i, event := range cases {
		if err := event.Validate(); err == nil {
			t.Fatalf("case %d: expected error for missing field", i)
		}
	}
}

func TestNormalizedEventRequiresText(t *testing.T) {
	event := NormalizedEvent{FilingID: "f-1", LocalPath: "/tmp/x", Filename: "a.pdf"}
	if err := event.Validate(); err == nil {
		t.Fatalf("expected error for empty text")
	}
	event.Text = "body"
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestCategorizedEventValidatesCategoryAndConfidence(t *testing.T) {
	base := CategorizedEvent{
		FilingID:   "f-1",
		LocalPath:  "/tmp/x",
		Filename:   "a.pdf",
		Text:       "body",
		Category:   CategoryQuarterlyReport,
		Confidence: 0.5,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := base
	bad.Category = FilingCategory("press_release")
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown category")
	}

	bad = base
	bad.Confidence = 1.2
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for confidence above 1")
	}

	bad = base
	bad.Confidence = -0.1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative confidence")
	}
}

func TestExtractedEventRequiresValidRecord(t *testing.T) {
	base := ExtractedEvent{
		FilingID:   "f-1",
		LocalPath:  "/tmp/x",
		Filename:   "a.pdf",
		Text:       "body",
		Category:   CategoryAnnualReport,
		Confidence: 0.5,
	}
	if err := base.Validate(); err == nil {
		t.Fatalf("expected error for missing record")
	}

	base.Record = validAnnualRecord()
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	base.Record.Annual = nil
	if err := base.Validate(); err == nil {
		t.Fatalf("expected error for invalid embedded record")
	}
}
