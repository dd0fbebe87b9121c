package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdfrecolor/editor"
	"github.com/tsawler/pdfrecolor/recolor"
)

type batchOptions struct {
	outDir string
	jobs   int
}

func newBatchCommand(o *rootOptions) *cobra.Command {
	b := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <glob>",
		Short: "Recolor every PDF matching a glob into an output directory",
		Long: `batch recolors every file matching a glob pattern. ** matches any number
of directories. Outputs keep their path relative to the static part of the
pattern, so docs/**/*.pdf with --out-dir out writes docs/a/b.pdf to
out/a/b.pdf.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runBatch(cmd.Context(), args[0], b)
		},
	}
	cmd.Flags().StringVarP(&b.outDir, "out-dir", "o", "", "directory for the recolored files (required)")
	cmd.Flags().IntVarP(&b.jobs, "jobs", "j", 0, "files processed at once, 0 for one per CPU")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

type batchJob struct {
	in, out string
}

// planBatch expands pattern and maps every matching file to its output
// path under outDir.
func planBatch(pattern, outDir string) ([]batchJob, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %q: %w", pattern, err)
	}

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, errors.Errorf("resolving output directory: %w", err)
	}

	jobs := make([]batchJob, 0, len(matches))
	for _, in := range matches {
		rel, err := filepath.Rel(base, in)
		if err != nil {
			rel = filepath.Base(in)
		}
		out := filepath.Join(outDir, rel)

		absIn, err := filepath.Abs(in)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", in, err)
		}
		if absIn == filepath.Join(absOut, rel) {
			return nil, errors.Errorf("output for %s would overwrite it; choose another --out-dir", in)
		}
		jobs = append(jobs, batchJob{in: in, out: out})
	}
	return jobs, nil
}

func (o *rootOptions) runBatch(ctx context.Context, pattern string, b *batchOptions) error {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(b.outDir)
	if err != nil || !info.IsDir() {
		return userError(editor.ErrOutputDirNotFound, "Output directory does not exist: %s", b.outDir)
	}

	jobs, err := planBatch(pattern, b.outDir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return userError(editor.ErrInputNotFound, "No files match %s.", pattern)
	}

	rules, err := o.loadRules()
	if err != nil {
		return err
	}

	reports, failures := o.recolorAll(ctx, jobs, rules, b.jobs)

	data := pterm.TableData{reportHeader}
	failed := 0
	for i, job := range jobs {
		if failures[i] != nil {
			failed++
			logger.Error().Err(failures[i]).Str("input", job.in).Msg("recolor failed")
			data = append(data, []string{filepath.Base(job.in), "", "", "", "", "", failures[i].Error()})
			continue
		}
		data = append(data, reportRow(reports[i]))
	}

	if !o.quiet {
		if err := o.printTable(data); err != nil {
			return errors.Errorf("rendering table: %w", err)
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(jobs))
	}
	pterm.Success.WithWriter(o.stdout).Printfln("Successfully recolored %d files into %s", len(jobs), b.outDir)
	return nil
}

// recolorAll runs the jobs concurrently. A failed file does not stop the
// others; its error is returned at its index.
func (o *rootOptions) recolorAll(ctx context.Context, jobs []batchJob, rules recolor.Rules, limit int) ([]*editor.Report, []error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	reports := make([]*editor.Report, len(jobs))
	failures := make([]error, len(jobs))

	update, stop := o.progress("Recoloring " + strconv.Itoa(len(jobs)) + " files")
	defer stop()
	var mu sync.Mutex
	done := 0

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(job.out), 0o755); err != nil {
				failures[i] = errors.Errorf("creating output directory: %w", err)
				return nil
			}

			// Files run in parallel already; stream fan-out inside each
			// file uses the --workers setting.
			reports[i], failures[i] = editor.Recolor(ctx, job.in, job.out, rules, o.editorOptions(nil))

			if update != nil {
				mu.Lock()
				done++
				update(done, len(jobs))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, failures
}
