package model

// Position is a zero-based (line, column) location in a document. Columns
// count Unicode code points within the line.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Compare returns -1, 0 or 1 ordering p relative to o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Column < o.Column:
		return -1
	case p.Column > o.Column:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly before o.
func (p Position) Before(o Position) bool {
	return p.Compare(o) < 0
}

// Range is a half-open span [Start, End) over a document.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Overlaps reports whether r and o share any position. Ranges that merely
// touch (one ends where the other starts) count as overlapping.
func (r Range) Overlaps(o Range) bool {
	return !(r.End.Before(o.Start) || o.End.Before(r.Start))
}

// LineSpan returns the number of lines the range touches.
func (r Range) LineSpan() int {
	return r.End.Line - r.Start.Line + 1
}
