// Package linediff computes line-level edit scripts between a saved baseline
// and the current text of a document, and maps the net-new lines onto the
// current document.
package linediff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sells-group/draftscan/internal/model"
)

// Op is the kind of a change run.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one run of whole lines sharing the same Op.
type Change struct {
	Op    Op
	Count int
	Text  string
	// Moved is set on insert runs whose lines all reappear among the deleted
	// lines of the same script.
	Moved bool
}

// Compute returns the line edit script turning baseline into current. The
// result is deterministic: the diff runs without a deadline.
func Compute(baseline, current string) []Change {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// An unterminated last line would otherwise differ from the same line
	// once text is appended after it.
	a, b, lines := dmp.DiffLinesToRunes(terminate(baseline), terminate(current))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), lines)

	changes := make([]Change, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		changes = append(changes, Change{
			Op:    toOp(d.Type),
			Count: countLines(d.Text),
			Text:  d.Text,
		})
	}
	markMoves(changes)
	return changes
}

func terminate(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

func toOp(t diffmatchpatch.Operation) Op {
	switch t {
	case diffmatchpatch.DiffInsert:
		return OpInsert
	case diffmatchpatch.DiffDelete:
		return OpDelete
	default:
		return OpEqual
	}
}

// countLines counts lines the way the line tokenizer splits them: every "\n"
// ends a line and a non-empty unterminated tail is one more.
func countLines(text string) int {
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// splitLines splits a run into lines with terminators removed.
func splitLines(text string) []string {
	parts := strings.SplitAfter(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.TrimRight(p, "\r\n"))
	}
	return out
}

// markMoves flags insert runs made entirely of lines that were deleted
// elsewhere in the script. Each deleted line can account for one inserted
// line only.
func markMoves(changes []Change) {
	deleted := make(map[string]int)
	for _, c := range changes {
		if c.Op != OpDelete {
			continue
		}
		for _, l := range splitLines(c.Text) {
			deleted[l]++
		}
	}
	if len(deleted) == 0 {
		return
	}

	for i := range changes {
		if changes[i].Op != OpInsert {
			continue
		}
		lines := splitLines(changes[i].Text)
		need := make(map[string]int, len(lines))
		for _, l := range lines {
			need[l]++
		}
		ok := true
		for l, n := range need {
			if deleted[l] < n {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for l, n := range need {
			deleted[l] -= n
		}
		changes[i].Moved = true
	}
}

// AddedRanges returns one range per inserted run of doc relative to baseline,
// from column 0 of its first line to the end of its last line. Runs that only
// move existing lines yield nothing. Every range is clamped to doc.
func AddedRanges(baseline string, doc *model.Document) []model.Range {
	return Ranges(Compute(baseline, doc.Text()), doc)
}

// Ranges maps the inserted runs of a script computed against doc's text to
// line ranges of doc.
func Ranges(changes []Change, doc *model.Document) []model.Range {
	var ranges []model.Range
	cursor := 0
	for _, c := range changes {
		switch c.Op {
		case OpEqual:
			cursor += c.Count
		case OpInsert:
			if !c.Moved && c.Count > 0 {
				ranges = append(ranges, doc.LinesRange(cursor, cursor+c.Count-1))
			}
			cursor += c.Count
		case OpDelete:
		}
	}
	return ranges
}

// Stats summarises a script in line counts.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Moved   int `json:"moved"`
}

// Summarize counts inserted, deleted and moved lines.
func Summarize(changes []Change) Stats {
	var s Stats
	for _, c := range changes {
		switch c.Op {
		case OpInsert:
			if c.Moved {
				s.Moved += c.Count
			} else {
				s.Added += c.Count
			}
		case OpDelete:
			s.Removed += c.Count
		case OpEqual:
		}
	}
	return s
}
