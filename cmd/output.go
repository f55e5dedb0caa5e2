package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const previewRunes = 48

// openOutput returns the command's stdout, or a created file when path is set.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, func() { f.Close() }, nil //nolint:errcheck
}

func writeReports(w io.Writer, reports []fileReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(reports), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case "table":
		return writeReportTable(w, reports)
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func writeReportTable(w io.Writer, reports []fileReport) error {
	header := fmt.Sprintf("%-32s %-11s %-7s %-5s %-7s %s\n", "FILE", "LINES", "TYPE", "CONF", "LEVEL", "TEXT")
	if _, err := fmt.Fprint(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 100)); err != nil {
		return err
	}

	total := 0
	for _, rep := range reports {
		for _, r := range rep.Regions {
			total++
			lines := fmt.Sprintf("%d-%d", r.Range.Start.Line+1, r.Range.End.Line+1)
			line := fmt.Sprintf("%-32s %-11s %-7s %-5.2f %-7s %s\n",
				truncate(rep.File, 32), lines, r.Type, r.Confidence, r.Level, preview(r.Text))
			if _, err := fmt.Fprint(w, line); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n%d region(s) in %d file(s)\n", total, len(reports))
	return err
}

// preview flattens text to one line and shortens it for table output.
func preview(text string) string {
	return truncate(strings.Join(strings.Fields(text), " "), previewRunes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
