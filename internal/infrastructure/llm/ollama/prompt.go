package ollama

import (
	"fmt"
	"strings"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// Long filings do not fit a prompt; the opening pages carry the form
// type and statement headers the rules key on.
const maxPromptChars = 12000

func buildClassifyPrompt(text string, rules []domain.CategoryRule) string {
	var ruleBuilder strings.Builder
	for _, rule := range rules {
		ruleBuilder.WriteString(fmt.Sprintf("- %s: %s\n", rule.Category, rule.Description))
	}

	return fmt.Sprintf(`You are a financial filing classifier.
Pick exactly one category id from the list below. Always answer with your best guess even if unsure; express doubt through the confidence value.
Return a strict JSON object with keys: category (one of the listed ids), confidence (number from 0 to 1).
No markdown, no extra keys.

Categories:
%s
Filing:
%s`, ruleBuilder.String(), clipText(text))
}

func buildExtractPrompt(text string, schema domain.ExtractionSchema) string {
	var fieldBuilder strings.Builder
	for _, field := range schema.Fields {
		fieldBuilder.WriteString(fmt.Sprintf("- %s (%s): %s\n", field.Name, field.Type, field.Description))
	}

	return fmt.Sprintf(`%s
Return a strict JSON object with exactly these keys. Every field is optional: use null for any value you cannot find in the filing. Never invent values.
No markdown, no extra keys.

Fields:
%s
Filing:
%s`, schema.Instructions, fieldBuilder.String(), clipText(text))
}

func clipText(text string) string {
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:maxPromptChars]
}
