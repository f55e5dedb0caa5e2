// Package detector composes manual-block extraction, diff-based and
// heuristic detection, scoring and merging into one detection entry point.
package detector

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/draftscan/internal/fence"
	"github.com/sells-group/draftscan/internal/heuristic"
	"github.com/sells-group/draftscan/internal/linediff"
	"github.com/sells-group/draftscan/internal/merge"
	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
)

// Default policy thresholds.
const (
	DefaultKeepThreshold       = 0.3
	DefaultActionableThreshold = 0.4
)

// Options are the policy knobs of a Detector.
type Options struct {
	// KeepThreshold is the score an automatic candidate must exceed to be kept.
	KeepThreshold float64
	// ActionableThreshold is the minimum confidence of a region worth rewriting.
	ActionableThreshold float64
	// FenceTag is the info string of manual draft fences.
	FenceTag string
}

// DefaultOptions returns the stock thresholds and fence tag.
func DefaultOptions() Options {
	return Options{
		KeepThreshold:       DefaultKeepThreshold,
		ActionableThreshold: DefaultActionableThreshold,
		FenceTag:            fence.DefaultTag,
	}
}

// Detector finds draft regions in documents against the saved states held
// in its Table. Callers must not run two detections for the same document
// concurrently; distinct documents are independent.
type Detector struct {
	table  *Table
	opts   Options
	fencer *fence.Extractor
}

// New returns a Detector over table. A nil table gets a fresh one.
func New(table *Table, opts Options) *Detector {
	if table == nil {
		table = NewTable()
	}
	return &Detector{
		table:  table,
		opts:   opts,
		fencer: fence.New(opts.FenceTag),
	}
}

// Options returns the detector's policy.
func (d *Detector) Options() Options { return d.opts }

// Table returns the saved-state table.
func (d *Detector) Table() *Table { return d.table }

// UpdateSavedState records text as the saved baseline of id.
func (d *Detector) UpdateSavedState(id, text string) {
	d.table.Set(id, text)
}

// SavedState returns the saved baseline of id, if any.
func (d *Detector) SavedState(id string) (string, bool) {
	return d.table.Get(id)
}

// ClearDocument forgets the saved baseline of id.
func (d *Detector) ClearDocument(id string) {
	d.table.Delete(id)
}

// ObserveDocument seeds the baseline of a document seen for the first time.
// Dirty documents and documents that already have a baseline are left alone.
// It reports whether a baseline was recorded.
func (d *Detector) ObserveDocument(id, text string, dirty bool) bool {
	if dirty {
		return false
	}
	return d.table.SetIfAbsent(id, text)
}

// DetectDraftRegions returns the manual regions of doc followed by its
// merged automatic regions. Automatic regions come from the diff against the
// saved baseline when one exists and from the line heuristic otherwise; none
// of them overlaps a manual region.
func (d *Detector) DetectDraftRegions(doc *model.Document, useAutomatic, useManual bool) []model.DraftRegion {
	var manual []model.DraftRegion
	if useManual {
		manual = d.fencer.Extract(doc)
	}

	var auto []model.DraftRegion
	if useAutomatic {
		if baseline, ok := d.table.Get(doc.ID()); ok {
			auto = d.diffRegions(baseline, doc, manual)
		} else {
			auto = merge.ExcludeOverlapping(heuristic.Detect(doc, d.opts.KeepThreshold), manual)
		}
	}

	zap.L().Debug("detector: detected regions",
		zap.String("document", doc.ID()),
		zap.Int("manual", len(manual)),
		zap.Int("auto", len(auto)),
	)

	out := make([]model.DraftRegion, 0, len(manual)+len(auto))
	out = append(out, manual...)
	return append(out, auto...)
}

// diffRegions scores every added range of doc, keeps those above the keep
// threshold that stay clear of manual regions, and merges the survivors.
func (d *Detector) diffRegions(baseline string, doc *model.Document, manual []model.DraftRegion) []model.DraftRegion {
	changes := linediff.Compute(baseline, doc.Text())
	stats := linediff.Summarize(changes)
	zap.L().Debug("detector: diffed against baseline",
		zap.String("document", doc.ID()),
		zap.Int("added", stats.Added),
		zap.Int("removed", stats.Removed),
		zap.Int("moved", stats.Moved),
	)
	ranges := linediff.Ranges(changes, doc)

	var candidates []model.DraftRegion
	for _, r := range ranges {
		if merge.OverlapsAny(r, manual) {
			continue
		}
		text := doc.TextIn(r)
		res := scorer.Score(text)
		if res.Confidence <= d.opts.KeepThreshold {
			zap.L().Debug("detector: dropped candidate",
				zap.String("document", doc.ID()),
				zap.Int("line", r.Start.Line),
				zap.Float64("confidence", res.Confidence),
			)
			continue
		}
		b := res.Breakdown
		candidates = append(candidates, model.DraftRegion{
			Range:      r,
			Text:       text,
			Type:       model.ProvenanceAuto,
			Confidence: res.Confidence,
			Breakdown:  &b,
		})
	}
	return merge.Merge(candidates, doc)
}

// Actionable returns the regions of at least threshold confidence with
// non-blank text, ordered from the bottom of the document up so that
// replacing one keeps the positions of the rest valid.
func Actionable(regions []model.DraftRegion, threshold float64) []model.DraftRegion {
	var out []model.DraftRegion
	for _, r := range regions {
		if r.Confidence < threshold || strings.TrimSpace(r.Text) == "" {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].Range.Start.Before(out[i].Range.Start)
	})
	return out
}

// Actionable applies the detector's actionable threshold.
func (d *Detector) Actionable(regions []model.DraftRegion) []model.DraftRegion {
	return Actionable(regions, d.opts.ActionableThreshold)
}
