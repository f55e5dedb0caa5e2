package model

import (
	"strings"
	"unicode/utf8"
)

// lineSpan holds byte offsets of one line. end excludes the line terminator
// and a trailing carriage return.
type lineSpan struct {
	start int
	end   int
}

// Document is an immutable snapshot of a text document with a line index.
type Document struct {
	id    string
	text  string
	lines []lineSpan
}

// NewDocument indexes text into lines. A document always has at least one
// line, possibly empty.
func NewDocument(id, text string) *Document {
	d := &Document{id: id, text: text}
	start := 0
	for {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			d.lines = append(d.lines, lineSpan{start: start, end: trimCR(text, start, len(text))})
			break
		}
		end := start + nl
		d.lines = append(d.lines, lineSpan{start: start, end: trimCR(text, start, end)})
		start = end + 1
	}
	return d
}

func trimCR(text string, start, end int) int {
	if end > start && text[end-1] == '\r' {
		return end - 1
	}
	return end
}

// ID returns the stable document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// LineCount returns the number of lines.
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns the text of line i without its terminator. Out-of-range
// indices yield "".
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	l := d.lines[i]
	return d.text[l.start:l.end]
}

// LineLength returns the length of line i in code points.
func (d *Document) LineLength(i int) int {
	return utf8.RuneCountInString(d.Line(i))
}

// IsBlankLine reports whether line i is empty or whitespace-only.
func (d *Document) IsBlankLine(i int) bool {
	return strings.TrimSpace(d.Line(i)) == ""
}

// ClampPosition moves p to the nearest valid position in the document.
func (d *Document) ClampPosition(p Position) Position {
	if p.Line < 0 {
		return Position{}
	}
	if p.Line >= len(d.lines) {
		last := len(d.lines) - 1
		return Position{Line: last, Column: d.LineLength(last)}
	}
	if p.Column < 0 {
		p.Column = 0
	}
	if n := d.LineLength(p.Line); p.Column > n {
		p.Column = n
	}
	return p
}

// ClampRange clamps both ends of r to the document and orders them so that
// Start is never after End.
func (d *Document) ClampRange(r Range) Range {
	r.Start = d.ClampPosition(r.Start)
	r.End = d.ClampPosition(r.End)
	if r.End.Before(r.Start) {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

// LinesRange returns the range covering whole lines first..last inclusive,
// ending at the full length of the last line.
func (d *Document) LinesRange(first, last int) Range {
	return d.ClampRange(Range{
		Start: Position{Line: first, Column: 0},
		End:   Position{Line: last, Column: d.LineLength(last)},
	})
}

// OffsetAt converts a position to a byte offset into Text.
func (d *Document) OffsetAt(p Position) int {
	p = d.ClampPosition(p)
	l := d.lines[p.Line]
	off := l.start
	for col := 0; col < p.Column && off < l.end; col++ {
		_, size := utf8.DecodeRuneInString(d.text[off:l.end])
		off += size
	}
	return off
}

// PositionAt converts a byte offset into Text to a position. Offsets inside
// a line terminator map to the end of that line.
func (d *Document) PositionAt(offset int) Position {
	if offset <= 0 {
		return Position{}
	}
	if offset >= len(d.text) {
		last := len(d.lines) - 1
		return Position{Line: last, Column: d.LineLength(last)}
	}
	lo, hi := 0, len(d.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lines[mid].start <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	l := d.lines[lo]
	if offset > l.end {
		offset = l.end
	}
	return Position{Line: lo, Column: utf8.RuneCountInString(d.text[l.start:offset])}
}

// TextIn returns the text covered by r after clamping.
func (d *Document) TextIn(r Range) string {
	r = d.ClampRange(r)
	return d.text[d.OffsetAt(r.Start):d.OffsetAt(r.End)]
}

// LinesText returns the text of lines first..last as it appears in the
// document, terminators between them included.
func (d *Document) LinesText(first, last int) string {
	return d.TextIn(d.LinesRange(first, last))
}
