package classify

import (
	"regexp"
	"strings"
)

// DocumentInfo is the classification of one recognized document: its type,
// the fields found in the text, and the extracted values. DetectedFields
// follows the fixed field-table order; ExtractedData keys are a subset of
// DetectedFields. OverallConfidence is copied from the source recognition
// result.
type DocumentInfo struct {
	DocumentType      string            `json:"document_type"`
	DetectedFields    []string          `json:"detected_fields"`
	ExtractedData     map[string]string `json:"extracted_data"`
	OverallConfidence float64           `json:"overall_confidence"`
}

// Empty is the zero-valued DocumentInfo returned when there is no text to
// classify. Collections are allocated so JSON responses carry [] and {}.
func Empty() DocumentInfo {
	return DocumentInfo{
		DetectedFields: []string{},
		ExtractedData:  map[string]string{},
	}
}

// typeRule maps a keyword group to a document-type label. Rules are
// evaluated top-down against the lower-cased text; the first group with any
// keyword present wins, so order is the deterministic tie-break.
type typeRule struct {
	keywords []string
	label    string
}

var typeRules = []typeRule{
	{keywords: []string{"invoice", "bill"}, label: "invoice"},
	{keywords: []string{"receipt"}, label: "receipt"},
	{keywords: []string{"contract", "agreement"}, label: "contract"},
	{keywords: []string{"financial", "report"}, label: "financial_report"},
}

// fieldRule extracts one labeled value: the field name followed by ":" or
// "=" and the value up to the next line break, matched case-insensitively
// against the original-case text.
type fieldRule struct {
	name    string
	pattern *regexp.Regexp
}

func newFieldRules(names []string) []fieldRule {
	rules := make([]fieldRule, 0, len(names))
	for _, name := range names {
		rules = append(rules, fieldRule{
			name:    name,
			pattern: regexp.MustCompile(`(?i)` + name + `\s*[:=]\s*([^\n]+)`),
		})
	}
	return rules
}

// Classifier assigns a document type and extracts labeled fields from
// recognized text.
type Classifier struct {
	types  []typeRule
	fields []fieldRule
}

// NewClassifier creates a classifier with the standard rule tables.
func NewClassifier() *Classifier {
	return &Classifier{
		types:  typeRules,
		fields: newFieldRules([]string{"date", "amount", "total", "name", "address", "phone", "email"}),
	}
}

// Classify inspects text and produces a DocumentInfo. Empty text yields the
// zero value with the type unset. Fields with no match are silently
// omitted; only the first occurrence of a field in the text is used.
func (c *Classifier) Classify(text string, confidence float64) DocumentInfo {
	info := Empty()
	if text == "" {
		return info
	}

	info.DocumentType = c.documentType(strings.ToLower(text))

	for _, field := range c.fields {
		match := field.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		info.DetectedFields = append(info.DetectedFields, field.name)
		info.ExtractedData[field.name] = match[1]
	}

	info.OverallConfidence = confidence
	return info
}

func (c *Classifier) documentType(lower string) string {
	for _, rule := range c.types {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.label
			}
		}
	}
	return "unknown"
}
