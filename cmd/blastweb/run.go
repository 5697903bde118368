package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CZERTAINLY/blastweb/internal/job"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/proc"
	"github.com/CZERTAINLY/blastweb/internal/seqfile"
	"github.com/CZERTAINLY/blastweb/internal/walk"

	"github.com/spf13/cobra"
)

var (
	flagQueries      []string
	flagDatabases    []string
	flagMode         string
	flagInstallation int
	flagOut          string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run searches query files against database files and writes the results",
	RunE:  doRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&flagQueries, "query", nil, "query sequence file (.fasta or .seq) or a directory, repeatable")
	runCmd.Flags().StringSliceVar(&flagDatabases, "db", nil, "database sequence file (.fasta or .seq) or a directory, repeatable")
	runCmd.Flags().StringVar(&flagMode, "mode", "", "output mode: tabular, pairwise, identity or mismatch")
	runCmd.Flags().IntVar(&flagInstallation, "installation", 0, "index of the installation as printed by detect")
	runCmd.Flags().StringVar(&flagOut, "out", ".", "directory the results are written to")
	_ = runCmd.MarkFlagRequired("query")
	_ = runCmd.MarkFlagRequired("db")
	_ = runCmd.MarkFlagRequired("mode")
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	mode, err := model.ParseMode(flagMode)
	if err != nil {
		return err
	}
	queries, err := readUploads(ctx, flagQueries)
	if err != nil {
		return err
	}
	databases, err := readUploads(ctx, flagDatabases)
	if err != nil {
		return err
	}

	installs := newDetector().Detect(ctx)
	if len(installs) == 0 {
		return model.ErrNoInstallation
	}
	if flagInstallation < 0 || flagInstallation >= len(installs) {
		return fmt.Errorf("installation index %d out of range, %d detected", flagInstallation, len(installs))
	}

	jobCfg, err := job.ConfigFromModel(config.Blast)
	if err != nil {
		return err
	}
	exec := proc.NewRunner().WithStderrFunc(proc.DebugStderr)
	runner := job.NewRunner(jobCfg, exec)

	deliverables, err := runner.Run(ctx, job.Request{
		Queries:      queries,
		Databases:    databases,
		Mode:         mode,
		Installation: installs[flagInstallation],
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flagOut, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, d := range deliverables {
		path := filepath.Join(flagOut, d.Filename)
		if err := os.WriteFile(path, d.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		slog.InfoContext(ctx, "written", "path", path, "mime", d.MIMEType)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

// readUploads reads sequence files, directories are expanded to the
// .fasta and .seq files they contain
func readUploads(ctx context.Context, paths []string) ([]model.Upload, error) {
	var ret []model.Upload
	for entry, err := range walk.Sequences(ctx, paths...) {
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Path(), err)
		}
		if !seqfile.AllowedExt(entry.Path()) {
			return nil, fmt.Errorf("%w: %s, only .fasta and .seq are accepted", model.ErrUploadName, entry.Path())
		}
		b, err := readEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Path(), err)
		}
		if summary, err := seqfile.Summarize(bytes.NewReader(b)); err != nil {
			slog.WarnContext(ctx, "unexpected sequence file content", "path", entry.Path(), "error", err)
		} else {
			slog.DebugContext(ctx, "sequence file", "path", entry.Path(), "summary", summary.String())
		}
		ret = append(ret, model.Upload{Name: filepath.Base(entry.Path()), Content: b})
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("no sequence file found in %s", strings.Join(paths, ", "))
	}
	return ret, nil
}

func readEntry(entry walk.Entry) ([]byte, error) {
	f, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}
