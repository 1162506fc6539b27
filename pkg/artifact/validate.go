package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMinPatterns is the pack size below which validation emits a
// warning. Small packs are suspicious but never invalid on size alone.
const DefaultMinPatterns = 5

// ValidationResult reports content validation as structured lists rather
// than errors: issues block installation, warnings never do.
type ValidationResult struct {
	IsValid      bool           `json:"is_valid"`
	PatternCount int            `json:"pattern_count"`
	Issues       []string       `json:"issues,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// packDocument is the structured pack form: metadata plus a patterns array.
type packDocument struct {
	Metadata map[string]any `yaml:"metadata"`
	Patterns []Pattern      `yaml:"patterns"`
}

var (
	legacyHeaderRe = regexp.MustCompile(`^##\s+Pattern\s+\d+\s*:\s*(.+?)\s*$`)
	legacyFieldRe  = regexp.MustCompile(`^\*\*([A-Za-z][A-Za-z ]*?)\s*:\*\*\s*(.*)$`)
)

// Validate checks pack content and reports issues and warnings.
// Accepted forms: a YAML/JSON document {metadata, patterns: [...]}, a bare
// pattern array, or the legacy delimited text format where each record
// starts with a "## Pattern N: Title" header followed by "**Field:** value"
// lines.
func Validate(content []byte) ValidationResult {
	return ValidateWithMinimum(content, DefaultMinPatterns)
}

// ValidateWithMinimum is Validate with a caller-supplied minimum pattern
// count for the small-pack warning.
func ValidateWithMinimum(content []byte, minPatterns int) ValidationResult {
	result := ValidationResult{}

	patterns, metadata, err := parsePack(content)
	if err != nil {
		result.Issues = append(result.Issues, err.Error())
		return result
	}
	result.Metadata = metadata
	result.PatternCount = len(patterns)

	if len(patterns) == 0 {
		result.Issues = append(result.Issues, "pack contains no patterns")
		return result
	}

	seen := make(map[string]int, len(patterns))
	for i, p := range patterns {
		required := []struct {
			field string
			value string
		}{
			{"id", p.ID},
			{"name", p.Name},
			{"description", p.Description},
			{"category", p.Category},
		}
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				result.Issues = append(result.Issues,
					fmt.Sprintf("pattern %d: missing required field %q", i, r.field))
			}
		}

		if p.ID != "" {
			if !strings.HasPrefix(p.ID, IDPrefix) {
				result.Issues = append(result.Issues,
					fmt.Sprintf("pattern %d: id %q must start with %q", i, p.ID, IDPrefix))
			}
			if prev, dup := seen[p.ID]; dup {
				result.Issues = append(result.Issues,
					fmt.Sprintf("pattern %d: duplicate id %q (first seen at %d)", i, p.ID, prev))
			} else {
				seen[p.ID] = i
			}
		}

		if p.Category != "" && !validCategory(p.Category) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("pattern %d: unknown category %q", i, p.Category))
		}

		switch {
		case p.Severity == "":
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("pattern %d: severity not set", i))
		case !validSeverity(p.Severity):
			result.Issues = append(result.Issues,
				fmt.Sprintf("pattern %d: unknown severity %q", i, p.Severity))
		}

		if len(p.Examples) == 0 {
			result.Issues = append(result.Issues,
				fmt.Sprintf("pattern %d: at least one example is required", i))
		}
	}

	if minPatterns > 0 && len(patterns) < minPatterns {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("pack has only %d patterns, expected at least %d", len(patterns), minPatterns))
	}

	result.IsValid = len(result.Issues) == 0
	return result
}

// parsePack decodes any of the accepted pack forms into patterns.
func parsePack(content []byte) ([]Pattern, map[string]any, error) {
	if looksLegacy(content) {
		patterns := parseLegacy(content)
		return patterns, nil, nil
	}

	var doc packDocument
	if err := yaml.Unmarshal(content, &doc); err == nil && doc.Patterns != nil {
		return doc.Patterns, doc.Metadata, nil
	}

	var bare []Pattern
	if err := yaml.Unmarshal(content, &bare); err == nil && bare != nil {
		return bare, nil, nil
	}

	return nil, nil, fmt.Errorf("unrecognized pack format: expected a patterns document, a pattern array, or legacy delimited text")
}

func looksLegacy(content []byte) bool {
	for _, line := range strings.Split(string(content), "\n") {
		if legacyHeaderRe.MatchString(strings.TrimRight(line, "\r")) {
			return true
		}
	}
	return false
}

// parseLegacy converts the delimited text format into patterns. A record
// runs from its "## Pattern N: Title" header to the next header or EOF.
func parseLegacy(content []byte) []Pattern {
	var patterns []Pattern
	var current *Pattern

	flush := func() {
		if current != nil {
			patterns = append(patterns, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimRight(raw, "\r")

		if m := legacyHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &Pattern{Name: strings.TrimSpace(m[1])}
			continue
		}
		if current == nil {
			continue
		}

		m := legacyFieldRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(strings.TrimSpace(m[1])) {
		case "id":
			current.ID = value
		case "name":
			current.Name = value
		case "description":
			current.Description = value
		case "category":
			current.Category = value
		case "severity":
			current.Severity = value
		case "examples":
			current.Examples = splitList(value)
		case "indicators":
			current.Indicators = splitList(value)
		}
	}
	flush()

	return patterns
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	if len(parts) == 1 {
		parts = strings.Split(value, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
