package artifact

import (
	"slices"
	"time"
)

// ValidationStatus reflects the outcome of content validation for a version.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
	ValidationFailed    ValidationStatus = "failed"
)

// IDPrefix is the required prefix for pattern identifiers.
const IDPrefix = "PAT-"

// Categories is the closed set of detection pattern categories.
var Categories = []string{
	"prompt_injection",
	"jailbreak",
	"data_leakage",
	"harmful_content",
	"policy_evasion",
	"social_engineering",
}

// Severities is the closed set of pattern severity levels.
var Severities = []string{"low", "medium", "high", "critical"}

// Pattern is a single detection rule inside a pack.
type Pattern struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Severity    string   `yaml:"severity" json:"severity"`
	Examples    []string `yaml:"examples,omitempty" json:"examples,omitempty"`
	Indicators  []string `yaml:"indicators,omitempty" json:"indicators,omitempty"`
}

// Version describes one installed, checksummed content bundle.
// At most one version is active at any time; the active version is never
// removed by cleanup.
type Version struct {
	Version          string           `json:"version"`
	Path             string           `json:"path"`
	Checksum         string           `json:"checksum"`
	DeployedAt       time.Time        `json:"deployed_at"`
	IsActive         bool             `json:"is_active"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	PatternCount     int              `json:"pattern_count"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
}

func (v *Version) clone() *Version {
	cp := *v
	if v.Metadata != nil {
		cp.Metadata = make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			cp.Metadata[k] = val
		}
	}
	return &cp
}

func validCategory(c string) bool {
	return slices.Contains(Categories, c)
}

func validSeverity(s string) bool {
	return slices.Contains(Severities, s)
}
