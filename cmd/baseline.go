package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/draftscan/internal/docio"
	"github.com/sells-group/draftscan/internal/store"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage saved baselines",
	Long:  "Baselines are the last saved text of each file. Detection reports what was added since.",
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save [files or directories...]",
	Short: "Record the current text of files as their baseline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoding, _ := cmd.Flags().GetString("encoding")
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			files, err := collectFiles(args, cfg.Detect.Extensions, cfg.Watch.Ignore)
			if err != nil {
				return err
			}
			return saveBaselines(ctx, cmd.OutOrStdout(), st, files, encoding)
		})
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the stored baseline of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			return showBaseline(ctx, cmd.OutOrStdout(), st, args[0])
		})
	},
}

var baselineClearCmd = &cobra.Command{
	Use:   "clear <files...>",
	Short: "Forget the stored baseline of files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			return clearBaselines(ctx, st, args)
		})
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with a stored baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			return listBaselines(ctx, cmd.OutOrStdout(), st)
		})
	},
}

func init() {
	baselineSaveCmd.Flags().String("encoding", "", "source file encoding (default utf-8)")
	baselineCmd.AddCommand(baselineSaveCmd, baselineShowCmd, baselineClearCmd, baselineListCmd)
	rootCmd.AddCommand(baselineCmd)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, st store.Store) error) error {
	if err := cfg.Validate("detect"); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(ctx, st)
}

func saveBaselines(ctx context.Context, w io.Writer, st store.Store, files []string, encoding string) error {
	for _, path := range files {
		doc, err := docio.ReadFile(path, encoding)
		if err != nil {
			return err
		}
		b, err := st.SaveBaseline(ctx, doc.ID(), doc.Text())
		if err != nil {
			return eris.Wrapf(err, "baseline: save %s", path)
		}
		zap.L().Info("baseline: saved", zap.String("document", doc.ID()), zap.String("revision", b.RevisionID))
		if _, err := fmt.Fprintf(w, "saved %s (%d lines)\n", path, doc.LineCount()); err != nil {
			return err
		}
	}
	return nil
}

func showBaseline(ctx context.Context, w io.Writer, st store.Store, path string) error {
	id, err := docio.DocumentID(path)
	if err != nil {
		return err
	}
	b, err := st.GetBaseline(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "baseline: get %s", path)
	}
	if b == nil {
		return eris.Errorf("baseline: no baseline stored for %s", path)
	}
	_, err = io.WriteString(w, b.Content)
	return err
}

func clearBaselines(ctx context.Context, st store.Store, paths []string) error {
	for _, path := range paths {
		id, err := docio.DocumentID(path)
		if err != nil {
			return err
		}
		if err := st.DeleteBaseline(ctx, id); err != nil {
			return eris.Wrapf(err, "baseline: clear %s", path)
		}
		zap.L().Info("baseline: cleared", zap.String("document", id))
	}
	return nil
}

func listBaselines(ctx context.Context, w io.Writer, st store.Store) error {
	baselines, err := st.ListBaselines(ctx)
	if err != nil {
		return eris.Wrap(err, "baseline: list")
	}

	header := fmt.Sprintf("%-20s %-8s %-38s %s\n", "SAVED", "LINES", "REVISION", "DOCUMENT")
	if _, err := fmt.Fprint(w, header); err != nil {
		return err
	}
	for _, b := range baselines {
		lines := strings.Count(b.Content, "\n") + 1
		line := fmt.Sprintf("%-20s %-8d %-38s %s\n",
			b.SavedAt.Format("2006-01-02 15:04:05"), lines, b.RevisionID, b.DocumentID)
		if _, err := fmt.Fprint(w, line); err != nil {
			return err
		}
	}
	return nil
}
