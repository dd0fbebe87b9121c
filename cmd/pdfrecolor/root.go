package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/tsawler/pdfrecolor/editor"
	"github.com/tsawler/pdfrecolor/palette"
	"github.com/tsawler/pdfrecolor/recolor"
)

const (
	envColors  = "PDFRECOLOR_COLORS"
	envWorkers = "PDFRECOLOR_WORKERS"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	colors           string
	tolerance        float64
	preserveOperator bool
	workers          int
	verify           bool
	debug            bool
	quiet            bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "pdfrecolor <input.pdf> <output.pdf>",
		Short: "Replace colors in PDF content streams",
		Long: `pdfrecolor rewrites the RGB color commands (r g b rg and r g b RG) in
every page content stream of a PDF. Colors within the tolerance of a rule's
target are replaced by the rule's replacement; every other byte is kept.

The result is written as an incremental update, so the original document is
preserved in full at the start of the output file.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			cmd.SetContext(o.logger().WithContext(cmd.Context()))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runRecolor(cmd.Context(), args[0], args[1])
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.colors, "colors", "c", envString(envColors, "colors.json"), "rule file, JSON or YAML (by extension) [$"+envColors+"]")
	flags.Float64Var(&o.tolerance, "tolerance", recolor.DefaultTolerance, "per-channel matching tolerance")
	flags.BoolVar(&o.preserveOperator, "preserve-operator", false, "keep RG stroke operators instead of writing rg")
	flags.IntVar(&o.workers, "workers", envInt(envWorkers, 0), "concurrent stream rewrites, 0 for one per CPU [$"+envWorkers+"]")
	flags.BoolVar(&o.verify, "verify", false, "discard rewrites that change a stream's operator sequence")
	flags.BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "no progress bar, summary or info logs")

	cmd.AddCommand(
		newInspectCommand(o),
		newBatchCommand(o),
		newPaletteCommand(o),
	)
	return cmd
}

var errInvalidTolerance = errors.Base("invalid tolerance")

func (o *rootOptions) validate() error {
	if !(o.tolerance > 0) {
		return userError(errInvalidTolerance, "Tolerance must be greater than zero, got %v.", o.tolerance)
	}
	return nil
}

func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case o.debug:
		level = zerolog.DebugLevel
	case o.quiet:
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: o.stderr}).Level(level).With().Timestamp().Logger()
}

func (o *rootOptions) editorOptions(progress editor.ProgressFunc) editor.Options {
	return editor.Options{
		Tolerance:        o.tolerance,
		PreserveOperator: o.preserveOperator,
		Workers:          o.workers,
		Verify:           o.verify,
		Progress:         progress,
	}
}

func (o *rootOptions) loadRules() (recolor.Rules, error) {
	rules, err := palette.Load(o.colors)
	switch {
	case err == nil:
		return rules, nil
	case errors.Is(err, palette.ErrRuleFileNotFound):
		return nil, userError(err, "Colors file '%s' not found.", o.colors)
	case errors.Is(err, palette.ErrInvalidColorFormat):
		return nil, userError(err, "Error in color conversion: %v", err)
	default:
		return nil, userError(err, "Invalid rule file '%s': %v", o.colors, err)
	}
}

// progress returns a callback driving a progress bar, and a function that
// clears it. With --quiet both do nothing.
func (o *rootOptions) progress(title string) (editor.ProgressFunc, func()) {
	if o.quiet {
		return nil, func() {}
	}

	var bar *pterm.ProgressbarPrinter
	update := func(done, total int) {
		if bar == nil {
			bar, _ = pterm.DefaultProgressbar.
				WithTotal(total).
				WithTitle(title).
				WithWriter(o.stderr).
				WithRemoveWhenDone().
				Start()
			if bar == nil {
				return
			}
		}
		bar.Increment()
	}
	stop := func() {
		if bar != nil {
			bar.Stop()
		}
	}
	return update, stop
}

func checkPaths(in, out string) error {
	if err := editor.CheckInput(in); err != nil {
		return userError(err, "The file at '%s' was not found.", in)
	}
	if err := editor.CheckOutput(out); err != nil {
		return userError(err, "Output directory does not exist: %s", filepath.Dir(out))
	}
	return nil
}

func (o *rootOptions) runRecolor(ctx context.Context, in, out string) error {
	if err := checkPaths(in, out); err != nil {
		return err
	}

	rules, err := o.loadRules()
	if err != nil {
		return err
	}

	update, stop := o.progress("Recoloring " + filepath.Base(in))
	report, err := editor.Recolor(ctx, in, out, rules, o.editorOptions(update))
	stop()
	if err != nil {
		if errors.Is(err, editor.ErrEncrypted) {
			return userError(err, "The file at '%s' is encrypted and cannot be recolored.", in)
		}
		return errors.Errorf("recoloring %s: %w", in, err)
	}

	pterm.Success.WithWriter(o.stdout).Printfln("Successfully saved the modified PDF to: %s", out)
	if !o.quiet {
		return o.printTable(pterm.TableData{reportHeader, reportRow(report)})
	}
	return nil
}

var reportHeader = []string{"File", "Pages", "Streams", "Changed", "Replaced", "Skipped", "Status"}

func reportRow(r *editor.Report) []string {
	status := "ok"
	if r.Changed == 0 {
		status = "unchanged"
	}
	if r.VerifyFailed > 0 {
		status = strconv.Itoa(r.VerifyFailed) + " rewrites rejected"
	}
	return []string{
		filepath.Base(r.Input),
		strconv.Itoa(r.Pages),
		strconv.Itoa(r.Streams),
		strconv.Itoa(r.Changed),
		strconv.Itoa(r.Replaced),
		strconv.Itoa(r.Skipped),
		status,
	}
}

func (o *rootOptions) printTable(data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(o.stdout).Render()
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
