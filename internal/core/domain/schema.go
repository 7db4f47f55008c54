package domain

// ConvertMode selects the document-understanding quality mode. The
// caller picks it; the collaborator never infers it.
type ConvertMode string

const (
	// ConvertStandard is the cheap text-layer conversion.
	ConvertStandard ConvertMode = "standard"
	// ConvertAgentic enables OCR and layout-aware table handling for
	// scanned or table-heavy documents.
	ConvertAgentic ConvertMode = "agentic"
)

// CategoryRule is a natural-language description of one filing
// category, handed to the categorizer collaborator. Rules are supplied
// by the caller, not hardcoded in the collaborator.
type CategoryRule struct {
	Category    FilingCategory `yaml:"category" json:"category"`
	Description string         `yaml:"description" json:"description"`
}

// SchemaField describes one optional field the extractor should try to
// populate. Type is a JSON type name ("string" or "array").
type SchemaField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ExtractionSchema enumerates the optional fields for one category.
// Every field is optional: the extractor returns null for values it
// cannot locate and never fails on missing data, so a malformed
// partial result is a valid result.
type ExtractionSchema struct {
	Name         string        `json:"name"`
	Instructions string        `json:"instructions"`
	Fields       []SchemaField `json:"fields"`
}
