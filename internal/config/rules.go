package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// DefaultCategoryRules describes each filing category in natural
// language for the categorizer. Structural cues, not keywords: audited
// annual statements vs unaudited quarterly statements vs item-numbered
// event disclosures.
func DefaultCategoryRules() []domain.CategoryRule {
	return []domain.CategoryRule{
		{
			Category: domain.CategoryAnnualReport,
			Description: "Annual report filed by a publicly traded company, containing comprehensive " +
				"audited annual financial statements including total revenue, net income, total assets " +
				"and total liabilities for the fiscal year. Typically labeled as an annual report such as Form 10-K.",
		},
		{
			Category: domain.CategoryQuarterlyReport,
			Description: "Quarterly report filed by a publicly traded company, containing unaudited " +
				"financial statements for a specific quarter including quarterly revenue, quarterly net " +
				"income, total assets and total liabilities. Typically labeled as a quarterly report such as Form 10-Q.",
		},
		{
			Category: domain.CategoryCurrentEventReport,
			Description: "Current report filed by a publicly traded company to announce major events or " +
				"material changes, such as acquisitions, executive changes or earnings announcements. " +
				"Contains event descriptions organized by item numbers (e.g. Item 1.01, Item 2.02). " +
				"Typically labeled as a current report such as Form 8-K.",
		},
	}
}

// LoadCategoryRules reads a rule set override from a YAML file. Empty
// path returns the built-in defaults. The file must describe every
// known category exactly once.
func LoadCategoryRules(path string) ([]domain.CategoryRule, error) {
	if path == "" {
		return DefaultCategoryRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules: %w", err)
	}

	var rules []domain.CategoryRule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}

	seen := make(map[domain.FilingCategory]bool, len(rules))
	for _, rule := range rules {
		if _, err := domain.ParseFilingCategory(string(rule.Category)); err != nil {
			return nil, fmt.Errorf("category rules: %w", err)
		}
		if rule.Description == "" {
			return nil, fmt.Errorf("category rules: empty description for %s", rule.Category)
		}
		if seen[rule.Category] {
			return nil, fmt.Errorf("category rules: duplicate entry for %s", rule.Category)
		}
		seen[rule.Category] = true
	}
	for _, category := range domain.Categories() {
		if !seen[category] {
			return nil, fmt.Errorf("category rules: missing entry for %s", category)
		}
	}
	return rules, nil
}
