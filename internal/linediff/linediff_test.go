package linediff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/draftscan/internal/model"
)

func TestCompute_Identical(t *testing.T) {
	t.Parallel()

	changes := Compute("a\nb\nc\n", "a\nb\nc\n")
	require.Len(t, changes, 1)
	assert.Equal(t, OpEqual, changes[0].Op)
	assert.Equal(t, 3, changes[0].Count)
}

func TestCompute_CountsLines(t *testing.T) {
	t.Parallel()

	changes := Compute("one\ntwo\n", "one\nnew a\nnew b\ntwo\n")
	require.Len(t, changes, 3)
	assert.Equal(t, OpEqual, changes[0].Op)
	assert.Equal(t, 1, changes[0].Count)
	assert.Equal(t, OpInsert, changes[1].Op)
	assert.Equal(t, 2, changes[1].Count)
	assert.Equal(t, "new a\nnew b\n", changes[1].Text)
	assert.False(t, changes[1].Moved)
	assert.Equal(t, OpEqual, changes[2].Op)
}

func TestCompute_UnterminatedLastLine(t *testing.T) {
	t.Parallel()

	changes := Compute("first", "first\nsecond")
	s := Summarize(changes)
	assert.Equal(t, 1, s.Added)
	assert.Equal(t, 0, s.Removed)
}

func TestOp_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "equal", OpEqual.String())
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestAddedRanges_AppendedLine(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("intro.tex", "\\section{Intro}\nthis is messy and needs cleanup\n")
	ranges := AddedRanges("\\section{Intro}\n", doc)

	require.Len(t, ranges, 1)
	assert.Equal(t, model.Range{
		Start: model.Position{Line: 1, Column: 0},
		End:   model.Position{Line: 1, Column: 31},
	}, ranges[0])
	assert.Equal(t, "this is messy and needs cleanup", doc.TextIn(ranges[0]))
}

func TestAddedRanges_CursorSkipsDeletedLines(t *testing.T) {
	t.Parallel()

	baseline := "keep 1\ndrop me\nkeep 2\nkeep 3\n"
	current := "keep 1\nkeep 2\nfresh line\nkeep 3\n"
	doc := model.NewDocument("d", current)

	ranges := AddedRanges(baseline, doc)
	require.Len(t, ranges, 1)
	assert.Equal(t, 2, ranges[0].Start.Line)
	assert.Equal(t, 2, ranges[0].End.Line)
	assert.Equal(t, "fresh line", doc.TextIn(ranges[0]))
}

func TestAddedRanges_MultipleRuns(t *testing.T) {
	t.Parallel()

	baseline := "a\nb\nc\n"
	current := "new 1\na\nb\nnew 2\nnew 3\nc\n"
	doc := model.NewDocument("d", current)

	ranges := AddedRanges(baseline, doc)
	require.Len(t, ranges, 2)
	assert.Equal(t, 0, ranges[0].Start.Line)
	assert.Equal(t, 0, ranges[0].End.Line)
	assert.Equal(t, 3, ranges[1].Start.Line)
	assert.Equal(t, 4, ranges[1].End.Line)
	assert.Equal(t, "new 2\nnew 3", doc.TextIn(ranges[1]))
}

func TestAddedRanges_MovedBlockYieldsNothing(t *testing.T) {
	t.Parallel()

	baseline := "alpha\nbeta\ngamma\ndelta\nepsilon\n"
	current := "gamma\ndelta\nepsilon\nalpha\nbeta\n"

	changes := Compute(baseline, current)
	s := Summarize(changes)
	assert.Equal(t, 0, s.Added)
	assert.Equal(t, 2, s.Moved)

	assert.Empty(t, AddedRanges(baseline, model.NewDocument("d", current)))
}

func TestAddedRanges_MoveWithEditIsAdded(t *testing.T) {
	t.Parallel()

	baseline := "alpha\nbeta\ngamma\ndelta\nepsilon\n"
	current := "gamma\ndelta\nepsilon\nalpha\nbeta but changed\n"

	ranges := AddedRanges(baseline, model.NewDocument("d", current))
	require.NotEmpty(t, ranges)
	assert.Equal(t, 4, ranges[len(ranges)-1].End.Line)
}

func TestAddedRanges_NoBaselineText(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "hello\nworld")
	ranges := AddedRanges("", doc)
	require.Len(t, ranges, 1)
	assert.Equal(t, model.Position{Line: 0, Column: 0}, ranges[0].Start)
	assert.Equal(t, model.Position{Line: 1, Column: 5}, ranges[0].End)
}

func TestAddedRanges_OnlyDeletions(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "a\nc\n")
	assert.Empty(t, AddedRanges("a\nb\nc\n", doc))
}

func TestAddedRanges_CRLF(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("d", "line one\r\nline two\r\nadded here\r\n")
	ranges := AddedRanges("line one\r\nline two\r\n", doc)
	require.Len(t, ranges, 1)
	assert.Equal(t, "added here", doc.TextIn(ranges[0]))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize([]Change{
		{Op: OpEqual, Count: 4},
		{Op: OpDelete, Count: 2},
		{Op: OpInsert, Count: 3},
		{Op: OpInsert, Count: 1, Moved: true},
	})
	assert.Equal(t, Stats{Added: 3, Removed: 2, Moved: 1}, s)
}
