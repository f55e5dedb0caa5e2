// Package fence extracts author-marked draft blocks delimited by a fenced
// code marker such as
//
//	```autotex
//	rough text
//	```
package fence

import (
	"regexp"
	"strings"

	"github.com/sells-group/draftscan/internal/model"
)

// DefaultTag is the fence info string that marks a manual draft block.
const DefaultTag = "autotex"

// ManualFactor is the single breakdown factor carried by manual regions.
const ManualFactor = "manually marked"

// Extractor finds fenced draft blocks for one tag.
type Extractor struct {
	tag     string
	pattern *regexp.Regexp
}

// New returns an Extractor for tag. An empty tag falls back to DefaultTag.
func New(tag string) *Extractor {
	if strings.TrimSpace(tag) == "" {
		tag = DefaultTag
	}
	// The opener must start its line; whitespace around either marker is
	// tolerated and the tag itself must match exactly.
	pattern := regexp.MustCompile("(?m)^[ \\t]*```" + regexp.QuoteMeta(tag) +
		"[ \\t]*\\r?\\n((?s:.*?))[ \\t]*```")
	return &Extractor{tag: tag, pattern: pattern}
}

// Tag returns the fence tag the extractor matches.
func (e *Extractor) Tag() string { return e.tag }

// Extract returns every fenced block in doc, left to right. The range of a
// region covers both markers; its text is the content between them. An opener
// without a closing marker yields nothing.
func (e *Extractor) Extract(doc *model.Document) []model.DraftRegion {
	text := doc.Text()
	matches := e.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	regions := make([]model.DraftRegion, 0, len(matches))
	for _, m := range matches {
		inner := text[m[2]:m[3]]
		r := doc.ClampRange(model.Range{
			Start: doc.PositionAt(m[0]),
			End:   doc.PositionAt(m[1]),
		})
		regions = append(regions, model.DraftRegion{
			Range:      r,
			Text:       inner,
			Type:       model.ProvenanceManual,
			Confidence: 1.0,
			Breakdown:  manualBreakdown(inner),
		})
	}
	return regions
}

func manualBreakdown(inner string) *model.ConfidenceBreakdown {
	return &model.ConfidenceBreakdown{
		BaseScore:            1.0,
		NaturalLanguageScore: 1.0,
		MultiLine:            len(strings.Split(inner, "\n")) > 2,
		Factors:              []string{ManualFactor},
		Penalties:            []string{},
	}
}
