package heuristic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/draftscan/internal/model"
)

func TestLooksFormatted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{`\begin{document}`, true},
		{`  \end{itemize}`, true},
		{`\section{Intro}`, true},
		{`\subsection*{Notes}`, true},
		{`\chapter{One}`, true},
		{`\documentclass{article}`, true},
		{`\usepackage{amsmath}`, true},
		{`\title{Draft}`, true},
		{`\author{Someone}`, true},
		{`\maketitle`, true},
		{"plain sentence about the proof", false},
		{`we cite \cite{x} here`, false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksFormatted(tt.line), "line %q", tt.line)
	}
}

func TestDetect_FindsProseBetweenMarkup(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		"this is messy and needs cleanup",
		"the second sentence explains more things",
		`\end{document}`,
	}, "\n"))

	regions := Detect(doc, 0.3)
	require.Len(t, regions, 1)
	r := regions[0]
	assert.Equal(t, model.ProvenanceAuto, r.Type)
	assert.Equal(t, 2, r.Range.Start.Line)
	assert.Equal(t, 0, r.Range.Start.Column)
	assert.Equal(t, 3, r.Range.End.Line)
	assert.Equal(t, doc.LineLength(3), r.Range.End.Column)
	assert.Equal(t, "this is messy and needs cleanup\nthe second sentence explains more things", r.Text)
	assert.Greater(t, r.Confidence, 0.3)
	require.NotNil(t, r.Breakdown)
}

func TestDetect_BlankLineSplitsSpans(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "first paragraph of rough notes\n\nsecond paragraph of rough notes\n")
	regions := Detect(doc, 0.3)
	require.Len(t, regions, 2)
	assert.Equal(t, 0, regions[0].Range.Start.Line)
	assert.Equal(t, 2, regions[1].Range.Start.Line)
}

func TestDetect_SpanRunningToEndOfInput(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "\\section{Intro}\nwe still need to write this part")
	regions := Detect(doc, 0.3)
	require.Len(t, regions, 1)
	assert.Equal(t, 1, regions[0].Range.End.Line)
}

func TestDetect_DropsLowConfidence(t *testing.T) {
	t.Parallel()

	// A lone short line scores exactly 0.3, which is not above the threshold.
	doc := model.NewDocument("d", "\\section{A}\nok\n\\section{B}\n")
	assert.Empty(t, Detect(doc, 0.3))

	// Inline markup only lines are not prose.
	doc = model.NewDocument("d", "$x^2 + y^2 = z^2$\n")
	assert.Empty(t, Detect(doc, 0.3))
}

func TestDetect_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "this is messy and needs cleanup")
	require.Len(t, Detect(doc, 0.5), 1)
	assert.Empty(t, Detect(doc, 0.6))
}

func TestDetect_EmptyDocument(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Detect(model.NewDocument("d", ""), 0.3))
}
