package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/draftscan/internal/detector"
	"github.com/sells-group/draftscan/internal/docio"
	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
	"github.com/sells-group/draftscan/internal/store"
	"github.com/sells-group/draftscan/internal/watch"
)

var detectCmd = &cobra.Command{
	Use:   "detect [files or directories...]",
	Short: "Report draft regions in LaTeX files",
	Long: `Detect draft regions in LaTeX files.

Each file is compared against its stored baseline. Files without a baseline
fall back to the line heuristic. Fenced blocks tagged with the configured
fence tag are always reported as manual regions.

Examples:
  # Scan every .tex file under the current directory
  detect .

  # Only regions worth rewriting, as JSON
  detect paper.tex --actionable --format json

  # Record the current text as the new baseline after reporting
  detect chapters/ --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.String("format", "table", "output format: table, json or yaml")
	f.String("encoding", "", "source file encoding (default utf-8)")
	f.Bool("no-auto", false, "skip diff and heuristic detection")
	f.Bool("no-manual", false, "skip fenced manual blocks")
	f.Bool("actionable", false, "only report regions at or above the actionable threshold")
	f.Bool("save", false, "store each file's current text as its baseline after detection")
	f.Int("concurrency", 4, "files processed in parallel")
	f.StringP("output", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(detectCmd)
}

// detectOptions controls one detect run.
type detectOptions struct {
	Encoding       string
	UseAutomatic   bool
	UseManual      bool
	ActionableOnly bool
	Save           bool
	Concurrency    int
}

// fileReport holds the detection outcome for one file.
type fileReport struct {
	File    string         `json:"file" yaml:"file"`
	Regions []regionReport `json:"regions" yaml:"regions"`
}

// regionReport is a draft region with its display level.
type regionReport struct {
	model.DraftRegion `yaml:",inline"`
	Level             scorer.Level `json:"level" yaml:"level"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate("detect"); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" && format != "yaml" {
		return eris.Errorf("detect: --format must be table, json or yaml (got %q)", format)
	}
	outputPath, _ := cmd.Flags().GetString("output")

	noAuto, _ := cmd.Flags().GetBool("no-auto")
	noManual, _ := cmd.Flags().GetBool("no-manual")
	opts := detectOptions{
		UseAutomatic: cfg.Detect.UseAutomatic && !noAuto,
		UseManual:    cfg.Detect.UseManual && !noManual,
	}
	opts.Encoding, _ = cmd.Flags().GetString("encoding")
	opts.ActionableOnly, _ = cmd.Flags().GetBool("actionable")
	opts.Save, _ = cmd.Flags().GetBool("save")
	opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")

	ctx := cmd.Context()
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	files, err := collectFiles(args, cfg.Detect.Extensions, cfg.Watch.Ignore)
	if err != nil {
		return err
	}

	reports, err := detectFiles(ctx, newDetector(cfg.Detect), st, files, opts)
	if err != nil {
		return err
	}

	w, closeFn, err := openOutput(cmd, outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	return writeReports(w, reports, format)
}

// collectFiles expands args into the sorted list of files with one of exts.
// Directories are walked recursively, skipping ignored names. Explicit file
// arguments with another extension are skipped with a warning.
func collectFiles(args, exts, ignore []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "detect: stat %s", arg)
		}
		if !info.IsDir() {
			if !watch.HasExtension(arg, exts) {
				zap.L().Warn("detect: skipping file with unsupported extension", zap.String("file", arg))
				continue
			}
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != arg && matchesIgnore(path, ignore) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && watch.HasExtension(path, exts) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "detect: walk %s", arg)
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesIgnore(path string, ignore []string) bool {
	base := filepath.Base(path)
	for _, pattern := range ignore {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// detectFiles runs detection over files concurrently. Reports come back in
// the order of files. A file that cannot be read fails the run.
func detectFiles(ctx context.Context, det *detector.Detector, st store.Store, files []string, opts detectOptions) ([]fileReport, error) {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	reports := make([]fileReport, len(files))
	var regionCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range files {
		g.Go(func() error {
			report, err := detectFile(gctx, det, st, path, opts)
			if err != nil {
				return err
			}
			reports[i] = report
			regionCount.Add(int64(len(report.Regions)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "detect: run")
	}

	zap.L().Info("detect: complete",
		zap.Int("files", len(files)),
		zap.Int64("regions", regionCount.Load()),
	)
	return reports, nil
}

func detectFile(ctx context.Context, det *detector.Detector, st store.Store, path string, opts detectOptions) (fileReport, error) {
	doc, err := docio.ReadFile(path, opts.Encoding)
	if err != nil {
		return fileReport{}, err
	}

	if err := loadBaseline(ctx, det, st, doc.ID()); err != nil {
		return fileReport{}, err
	}

	regions := det.DetectDraftRegions(doc, opts.UseAutomatic, opts.UseManual)
	if opts.ActionableOnly {
		regions = det.Actionable(regions)
	}

	if opts.Save {
		if _, err := st.SaveBaseline(ctx, doc.ID(), doc.Text()); err != nil {
			return fileReport{}, eris.Wrapf(err, "detect: save baseline for %s", path)
		}
		det.UpdateSavedState(doc.ID(), doc.Text())
	}

	zap.L().Debug("detect: file done", zap.String("file", path), zap.Int("regions", len(regions)))
	return fileReport{File: path, Regions: toReports(regions)}, nil
}

// loadBaseline mirrors the stored baseline of id into the detector's table.
// A document without a stored baseline has its table entry cleared.
func loadBaseline(ctx context.Context, det *detector.Detector, st store.Store, id string) error {
	b, err := st.GetBaseline(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "load baseline for %s", id)
	}
	if b == nil {
		det.ClearDocument(id)
		return nil
	}
	det.UpdateSavedState(id, b.Content)
	return nil
}

func toReports(regions []model.DraftRegion) []regionReport {
	out := make([]regionReport, 0, len(regions))
	for _, r := range regions {
		out = append(out, regionReport{DraftRegion: r, Level: scorer.LevelOf(r.Confidence)})
	}
	return out
}
