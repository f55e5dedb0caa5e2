package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/draftscan/internal/docio"
	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score [text]",
	Short: "Score a text fragment for draft confidence",
	Long: `Score a fragment of LaTeX source and print the confidence breakdown.

The fragment is taken from the argument, from --file, or from stdin.

Examples:
  score "we should probably explain this better"
  score --file notes.tex --format json
  cat notes.tex | score`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("file", "", "read the fragment from a file")
	f.String("encoding", "", "encoding of --file or stdin (default utf-8)")
	f.String("format", "text", "output format: text or json")
	rootCmd.AddCommand(scoreCmd)
}

type scoreOutput struct {
	Confidence float64                   `json:"confidence"`
	Level      scorer.Level              `json:"level"`
	Breakdown  model.ConfidenceBreakdown `json:"breakdown"`
}

func runScore(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return eris.Errorf("score: --format must be text or json (got %q)", format)
	}
	path, _ := cmd.Flags().GetString("file")
	encoding, _ := cmd.Flags().GetString("encoding")

	text, err := scoreInput(cmd.InOrStdin(), args, path, encoding)
	if err != nil {
		return err
	}
	return writeScore(cmd.OutOrStdout(), scorer.Score(text), format)
}

func scoreInput(stdin io.Reader, args []string, path, encoding string) (string, error) {
	switch {
	case len(args) == 1 && path != "":
		return "", eris.New("score: pass either a text argument or --file, not both")
	case len(args) == 1:
		return args[0], nil
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return "", eris.Wrapf(err, "score: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return docio.Decode(f, encoding)
	default:
		return docio.Decode(stdin, encoding)
	}
}

func writeScore(w io.Writer, res scorer.Result, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		out := scoreOutput{Confidence: res.Confidence, Level: scorer.LevelOf(res.Confidence), Breakdown: res.Breakdown}
		return eris.Wrap(enc.Encode(out), "score: encode json")
	}

	b := res.Breakdown
	var sb strings.Builder
	fmt.Fprintf(&sb, "Confidence:       %.2f (%s)\n", res.Confidence, scorer.LevelOf(res.Confidence))
	fmt.Fprintf(&sb, "Base score:       %.2f\n", b.BaseScore)
	fmt.Fprintf(&sb, "Natural language: %.2f\n", b.NaturalLanguageScore)
	fmt.Fprintf(&sb, "Short text:       %t\n", b.IsShortText)
	fmt.Fprintf(&sb, "Multi-line:       %t\n", b.MultiLine)
	fmt.Fprintf(&sb, "Incomplete LaTeX: %t\n", b.IncompleteLaTeX)
	fmt.Fprintf(&sb, "Formatted LaTeX:  %t\n", b.HasFormattedLaTeX)
	for _, f := range b.Factors {
		fmt.Fprintf(&sb, "  + %s\n", f)
	}
	for _, p := range b.Penalties {
		fmt.Fprintf(&sb, "  - %s\n", p)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
