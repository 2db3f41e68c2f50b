package engine

import "regexp"

// DetectionRule represents a single detection rule of the pattern catalog.
// Group selects which capture group carries the sensitive value; 0 means the
// whole match.
type DetectionRule struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int
}

// DefaultRules returns the pattern catalog in evaluation order. Order matters:
// rules with unambiguous shapes (IDs, emails, IBANs) run before the generic
// name heuristics so they claim their values first, and IP runs last so
// dotted quads cannot shadow other numeric tokens.
func DefaultRules() []DetectionRule {
	return []DetectionRule{
		{
			Name:    "EMAIL",
			Pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		},
		{
			Name:    "IBAN",
			Pattern: regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}(?:\s?\d{4}){4,5}\b`),
		},
		{
			Name:    "DNI_NIE",
			Pattern: regexp.MustCompile(`(?i)\b\d{8}[A-HJ-NP-TV-Z]\b|\b[XYZ]\d{7}[A-Z]\b`),
		},
		{
			Name:    "CIF",
			Pattern: regexp.MustCompile(`(?i)\b[ABCDEFGHJNPQRSUVW]\d{7}[0-9A-J]\b`),
		},
		{
			Name:    "PHONE",
			Pattern: regexp.MustCompile(`\b(?:\+34|0034|34)?[6789]\d{8}\b`),
		},
		{
			Name:    "DATE_TEXT",
			Pattern: regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+(?:enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+de\s+\d{4}\b`),
		},
		{
			Name:    "DATE",
			Pattern: regexp.MustCompile(`\b\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\b`),
		},
		{
			Name:    "LICENCIA",
			Pattern: regexp.MustCompile(`\b\d{5}-[A-Z]{2,}\b`),
		},
		{
			Name:    "COMPANY",
			Pattern: regexp.MustCompile(`(?i)\b(?:[A-Z\x{00C0}-\x{017F}][a-z\x{00C0}-\x{017F}]+\s?){1,3}(?:S\.?L\.?U\.?|S\.?A\.?U\.?|S\.?L\.?|S\.?A\.?|S\.?Coop\.?|Sociedad\s+(?:Anónima|Limitada|Cooperativa))\b`),
		},
		{
			// The courtesy title anchors the match; only the name after it is
			// the sensitive value.
			Name:    "NAME_HEURISTIC",
			Pattern: regexp.MustCompile(`(?:Sr\.|Sra\.|D\.|Dña\.|Dñ\.)\s+([A-Z][a-z\x{00C0}-\x{017F}]+\s+[A-Z][a-z\x{00C0}-\x{017F}]+(?:\s+[A-Z][a-z\x{00C0}-\x{017F}]+)?)`),
			Group:   1,
		},
		{
			Name:    "NAME_FULL",
			Pattern: regexp.MustCompile(`\b(?:[A-Z\x{00C0}-\x{017F}][a-z\x{00C0}-\x{017F}]+\s+){1,2}[A-Z\x{00C0}-\x{017F}][a-z\x{00C0}-\x{017F}]+\b`),
		},
		{
			Name:    "IP",
			Pattern: regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		},
	}
}
