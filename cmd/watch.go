package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/draftscan/internal/detector"
	"github.com/sells-group/draftscan/internal/docio"
	"github.com/sells-group/draftscan/internal/store"
	"github.com/sells-group/draftscan/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Re-run detection on LaTeX files as they change",
	Long: `Watch a directory tree and re-run detection on each LaTeX file once it has
stopped changing for the configured debounce interval. Regions are logged.

With --save-on-start, files that have no stored baseline get their current
text recorded before watching begins.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("watch"); err != nil {
			return err
		}
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		saveOnStart, _ := cmd.Flags().GetBool("save-on-start")
		encoding, _ := cmd.Flags().GetString("encoding")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		det := newDetector(cfg.Detect)
		dw := &docWatcher{
			det:       det,
			store:     st,
			encoding:  encoding,
			useAuto:   cfg.Detect.UseAutomatic,
			useManual: cfg.Detect.UseManual,
		}

		w, err := watch.New(root, dw.handle, watch.Options{
			Debounce:   cfg.Watch.Debounce(),
			Extensions: cfg.Detect.Extensions,
			Ignore:     cfg.Watch.Ignore,
		})
		if err != nil {
			return err
		}
		defer w.Close() //nolint:errcheck

		if saveOnStart {
			files, err := w.Files()
			if err != nil {
				return err
			}
			seeded, err := dw.seed(ctx, files)
			if err != nil {
				return err
			}
			zap.L().Info("watch: seeded baselines", zap.Int("files", len(files)), zap.Int("seeded", seeded))
		}

		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().Bool("save-on-start", false, "record baselines for files that have none before watching")
	watchCmd.Flags().String("encoding", "", "source file encoding (default utf-8)")
	rootCmd.AddCommand(watchCmd)
}

// docWatcher re-detects settled files against their stored baselines.
type docWatcher struct {
	det       *detector.Detector
	store     store.Store
	encoding  string
	useAuto   bool
	useManual bool
}

// seed records the current text of every file without a stored baseline
// and returns how many were recorded.
func (dw *docWatcher) seed(ctx context.Context, files []string) (int, error) {
	seeded := 0
	for _, path := range files {
		doc, err := docio.ReadFile(path, dw.encoding)
		if err != nil {
			return seeded, err
		}
		if err := loadBaseline(ctx, dw.det, dw.store, doc.ID()); err != nil {
			return seeded, err
		}
		if !dw.det.ObserveDocument(doc.ID(), doc.Text(), false) {
			continue
		}
		if _, err := dw.store.SaveBaseline(ctx, doc.ID(), doc.Text()); err != nil {
			return seeded, eris.Wrapf(err, "watch: seed baseline for %s", path)
		}
		seeded++
	}
	return seeded, nil
}

func (dw *docWatcher) handle(ctx context.Context, path string) {
	log := zap.L().With(zap.String("file", path))

	doc, err := docio.ReadFile(path, dw.encoding)
	if err != nil {
		log.Warn("watch: read failed", zap.Error(err))
		return
	}
	if err := loadBaseline(ctx, dw.det, dw.store, doc.ID()); err != nil {
		log.Warn("watch: load baseline failed", zap.Error(err))
		return
	}

	regions := dw.det.DetectDraftRegions(doc, dw.useAuto, dw.useManual)
	actionable := dw.det.Actionable(regions)
	log.Info("watch: detected",
		zap.Int("regions", len(regions)),
		zap.Int("actionable", len(actionable)),
	)
	for _, r := range actionable {
		log.Info("watch: draft region",
			zap.String("type", string(r.Type)),
			zap.Int("start_line", r.Range.Start.Line+1),
			zap.Int("end_line", r.Range.End.Line+1),
			zap.Float64("confidence", r.Confidence),
			zap.String("text", preview(r.Text)),
		)
	}
}
