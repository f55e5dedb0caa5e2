package model

import "time"

// Provenance identifies how a draft region was found.
type Provenance string

const (
	// ProvenanceManual marks a region fenced explicitly by the author.
	ProvenanceManual Provenance = "manual"
	// ProvenanceAuto marks a region inferred by diff or heuristic detection.
	ProvenanceAuto Provenance = "auto"
)

// AllProvenances returns every defined provenance.
func AllProvenances() []Provenance {
	return []Provenance{ProvenanceManual, ProvenanceAuto}
}

// Valid reports whether p is a known provenance.
func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceManual, ProvenanceAuto:
		return true
	default:
		return false
	}
}

// ConfidenceBreakdown is the audit trail of one scoring decision.
type ConfidenceBreakdown struct {
	BaseScore            float64  `json:"base_score" yaml:"base_score"`
	NaturalLanguageScore float64  `json:"natural_language_score" yaml:"natural_language_score"`
	IncompleteLaTeX      bool     `json:"incomplete_latex" yaml:"incomplete_latex"`
	MultiLine            bool     `json:"multi_line" yaml:"multi_line"`
	HasFormattedLaTeX    bool     `json:"has_formatted_latex" yaml:"has_formatted_latex"`
	IsShortText          bool     `json:"is_short_text" yaml:"is_short_text"`
	Factors              []string `json:"factors" yaml:"factors"`
	Penalties            []string `json:"penalties" yaml:"penalties"`
}

// DraftRegion is a span of document text flagged as unpolished content.
type DraftRegion struct {
	Range      Range                `json:"range" yaml:"range"`
	Text       string               `json:"text" yaml:"text"`
	Type       Provenance           `json:"type" yaml:"type"`
	Confidence float64              `json:"confidence" yaml:"confidence"`
	Breakdown  *ConfidenceBreakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// Baseline is the last persisted full text of a document.
type Baseline struct {
	DocumentID string    `json:"document_id"`
	RevisionID string    `json:"revision_id"`
	Content    string    `json:"content"`
	SavedAt    time.Time `json:"saved_at"`
}
