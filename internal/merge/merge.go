// Package merge orders draft regions and coalesces neighbouring automatic
// regions separated only by blank lines. Manual regions pass through
// untouched.
package merge

import (
	"sort"

	"github.com/sells-group/draftscan/internal/model"
)

// MaxBlankGap is the largest number of blank lines that may separate two
// automatic regions that are merged.
const MaxBlankGap = 2

// Merge sorts regions by start position and merges adjacent automatic regions
// whose gap is at most MaxBlankGap blank lines. Regions of different
// provenance are never combined and manual regions are never merged with each
// other. Merge is idempotent on its own output.
func Merge(regions []model.DraftRegion, doc *model.Document) []model.DraftRegion {
	if len(regions) == 0 {
		return nil
	}

	sorted := make([]model.DraftRegion, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Before(sorted[j].Range.Start)
	})

	out := make([]model.DraftRegion, 0, len(sorted))
	acc := sorted[0]
	for _, next := range sorted[1:] {
		if mergeable(acc, next, doc) {
			acc = combine(acc, next, doc)
			continue
		}
		out = append(out, acc)
		acc = next
	}
	return append(out, acc)
}

func mergeable(acc, next model.DraftRegion, doc *model.Document) bool {
	if acc.Type != next.Type {
		return false
	}
	switch acc.Type {
	case model.ProvenanceManual:
		return false
	case model.ProvenanceAuto:
		return blankGap(acc.Range.End.Line, next.Range.Start.Line, doc)
	default:
		return false
	}
}

// blankGap reports whether the lines strictly between endLine and startLine
// number at most MaxBlankGap and are all blank. Touching or overlapping
// regions have no lines between them.
func blankGap(endLine, startLine int, doc *model.Document) bool {
	between := startLine - endLine - 1
	if between > MaxBlankGap {
		return false
	}
	for l := endLine + 1; l < startLine; l++ {
		if !doc.IsBlankLine(l) {
			return false
		}
	}
	return true
}

// combine spans acc.Start to the later of both ends. The merged region no
// longer stands for one scoring decision, so it carries no breakdown.
func combine(acc, next model.DraftRegion, doc *model.Document) model.DraftRegion {
	end := acc.Range.End
	if end.Before(next.Range.End) {
		end = next.Range.End
	}
	r := doc.ClampRange(model.Range{Start: acc.Range.Start, End: end})
	return model.DraftRegion{
		Range:      r,
		Text:       doc.TextIn(r),
		Type:       acc.Type,
		Confidence: max(acc.Confidence, next.Confidence),
	}
}

// OverlapsAny reports whether r overlaps any of regions.
func OverlapsAny(r model.Range, regions []model.DraftRegion) bool {
	for _, o := range regions {
		if r.Overlaps(o.Range) {
			return true
		}
	}
	return false
}

// ExcludeOverlapping drops every candidate that overlaps a manual region.
func ExcludeOverlapping(candidates, manual []model.DraftRegion) []model.DraftRegion {
	if len(manual) == 0 {
		return candidates
	}
	kept := make([]model.DraftRegion, 0, len(candidates))
	for _, c := range candidates {
		if OverlapsAny(c.Range, manual) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
