// Package heuristic finds draft spans line by line when a document has no
// saved baseline to diff against.
package heuristic

import (
	"regexp"

	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
)

// formattedLinePatterns mark a line as already-formatted markup. Any match
// closes an open draft span.
var formattedLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\\begin\{`),
	regexp.MustCompile(`\\end\{`),
	regexp.MustCompile(`\\section`),
	regexp.MustCompile(`\\subsection`),
	regexp.MustCompile(`\\chapter`),
	regexp.MustCompile(`\\documentclass`),
	regexp.MustCompile(`\\usepackage`),
	regexp.MustCompile(`\\title`),
	regexp.MustCompile(`\\author`),
	regexp.MustCompile(`\\maketitle`),
}

// LooksFormatted reports whether line matches any formatted-markup pattern.
func LooksFormatted(line string) bool {
	for _, p := range formattedLinePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// Detect scans doc for runs of non-blank, non-formatted lines and keeps each
// run whose score exceeds keepAbove. All regions are automatic.
func Detect(doc *model.Document, keepAbove float64) []model.DraftRegion {
	var regions []model.DraftRegion
	inside := false
	start := 0

	closeSpan := func(last int) {
		inside = false
		r := doc.LinesRange(start, last)
		text := doc.TextIn(r)
		res := scorer.Score(text)
		if res.Confidence <= keepAbove {
			return
		}
		b := res.Breakdown
		regions = append(regions, model.DraftRegion{
			Range:      r,
			Text:       text,
			Type:       model.ProvenanceAuto,
			Confidence: res.Confidence,
			Breakdown:  &b,
		})
	}

	for i := 0; i < doc.LineCount(); i++ {
		boundary := doc.IsBlankLine(i) || LooksFormatted(doc.Line(i))
		switch {
		case !inside && !boundary:
			inside = true
			start = i
		case inside && boundary:
			closeSpan(i - 1)
		}
	}
	if inside {
		closeSpan(doc.LineCount() - 1)
	}
	return regions
}
