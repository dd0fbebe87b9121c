package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/pdfrecolor/editor"
	"github.com/tsawler/pdfrecolor/palette"
	"github.com/tsawler/pdfrecolor/recolor"
)

var highlight = color.New(color.FgHiYellow, color.Bold)

func newInspectCommand(o *rootOptions) *cobra.Command {
	var operators int

	cmd := &cobra.Command{
		Use:   "inspect <input.pdf>",
		Short: "List the RGB colors a PDF uses and which rules would replace them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Without an explicit rule file, a missing default is not an error.
			rules, err := o.loadRules()
			if err != nil {
				if !errors.Is(err, palette.ErrRuleFileNotFound) || cmd.Flags().Changed("colors") {
					return err
				}
				zerolog.Ctx(cmd.Context()).Debug().Str("colors", o.colors).Msg("no rule file, listing colors only")
				rules = nil
			}
			return o.runInspect(cmd.Context(), args[0], rules, operators)
		},
	}
	cmd.Flags().IntVar(&operators, "operators", 8, "how many of the most frequent operators to list, 0 for none")
	return cmd
}

func (o *rootOptions) runInspect(ctx context.Context, path string, rules recolor.Rules, operators int) error {
	if err := editor.CheckInput(path); err != nil {
		return userError(err, "The file at '%s' was not found.", path)
	}

	inv, err := editor.Inspect(ctx, path, rules, o.editorOptions(nil))
	if err != nil {
		if errors.Is(err, editor.ErrEncrypted) {
			return userError(err, "The file at '%s' is encrypted and cannot be inspected.", path)
		}
		return errors.Errorf("inspecting %s: %w", path, err)
	}

	info := pterm.Info.WithWriter(o.stdout)
	info.Printfln("%d pages, %d content streams, %d operators, %d color commands",
		inv.Pages, inv.Streams, inv.Census.Total, sumCounts(inv.Colors))
	if inv.Skipped > 0 {
		pterm.Warning.WithWriter(o.stdout).Printfln("%d content streams could not be decoded", inv.Skipped)
	}

	if len(inv.Colors) == 0 {
		info.Println("No RGB color commands found.")
	} else {
		data := pterm.TableData{{"", "Color", "Count", "Fill", "Stroke", "Replacement", "First use"}}
		for _, use := range inv.Colors {
			repl := "-"
			if use.Matched {
				repl = swatch(use.Replacement) + " " + use.Replacement.Hex()
			}
			data = append(data, []string{
				swatch(use.Color),
				use.Color.Hex(),
				strconv.Itoa(use.Count),
				strconv.Itoa(use.Fill),
				strconv.Itoa(use.Stroke),
				repl,
				excerpt(use),
			})
		}
		if err := o.printTable(data); err != nil {
			return errors.Errorf("rendering table: %w", err)
		}
	}

	if operators > 0 && inv.Census.Total > 0 {
		sorted := inv.Census.Sorted()
		parts := make([]string, 0, operators)
		for _, op := range sorted[:min(operators, len(sorted))] {
			parts = append(parts, op+"="+strconv.Itoa(inv.Census.Operators[op]))
		}
		info.Printfln("Most used operators: %s", strings.Join(parts, " "))
	}
	return nil
}

func sumCounts(uses []*editor.ColorUse) int {
	n := 0
	for _, u := range uses {
		n += u.Count
	}
	return n
}

func swatch(c recolor.Color) string {
	r, g, b := c.RGB8()
	return pterm.NewRGB(r, g, b).Sprint("██")
}

// excerpt shows the first use of a color in its surrounding stream text,
// with the color command highlighted. Stream bytes are Latin-1.
func excerpt(use *editor.ColorUse) string {
	return printable(use.Before) + highlight.Sprint(printable(use.Match)) + printable(use.After)
}

func printable(raw string) string {
	s, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		s = raw
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r < 0xa0) {
			return ' '
		}
		return r
	}, s)
}
