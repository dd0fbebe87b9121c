package main

import (
	"encoding/json"
	"image/png"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfrecolor/palette"
	"github.com/tsawler/pdfrecolor/recolor"
)

type paletteOptions struct {
	defaults bool
	pngPath  string
	export   string
}

func newPaletteCommand(o *rootOptions) *cobra.Command {
	p := &paletteOptions{}

	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Validate and preview a rule file",
		Long: `palette loads the rule file given by --colors (or the built-in defaults
with --defaults), prints the rules as a table and optionally renders a
before/after swatch image or writes the rules back out as JSON or YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runPalette(p)
		},
	}
	cmd.Flags().BoolVar(&p.defaults, "defaults", false, "use the built-in rules instead of a rule file")
	cmd.Flags().StringVar(&p.pngPath, "png", "", "write a swatch preview to this PNG file")
	cmd.Flags().StringVar(&p.export, "export", "", "print the rules as json or yaml")
	return cmd
}

func (o *rootOptions) runPalette(p *paletteOptions) error {
	var rules recolor.Rules
	if p.defaults {
		rules = palette.Defaults()
	} else {
		var err error
		if rules, err = o.loadRules(); err != nil {
			return err
		}
	}

	switch p.export {
	case "":
		data := pterm.TableData{{"#", "Target", "", "Replacement", ""}}
		for i, r := range rules {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				r.Target.Hex(), swatch(r.Target),
				r.Replacement.Hex(), swatch(r.Replacement),
			})
		}
		if err := o.printTable(data); err != nil {
			return errors.Errorf("rendering table: %w", err)
		}
	case "json", "yaml":
		if err := o.exportRules(rules, p.export); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown export format %q, want json or yaml", p.export)
	}

	if p.pngPath != "" {
		if err := writeSwatch(p.pngPath, rules); err != nil {
			return err
		}
		pterm.Success.WithWriter(o.stdout).Printfln("Wrote swatch for %d rules to %s", len(rules), p.pngPath)
	}
	return nil
}

func (o *rootOptions) exportRules(rules recolor.Rules, format string) error {
	records := palette.Records(rules)

	var out []byte
	var err error
	if format == "yaml" {
		out, err = yaml.Marshal(records)
	} else {
		out, err = json.MarshalIndent(records, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return errors.Errorf("encoding rules: %w", err)
	}
	_, err = o.stdout.Write(out)
	return err
}

func writeSwatch(path string, rules recolor.Rules) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, palette.Swatch(rules)); err != nil {
		f.Close()
		return errors.Errorf("encoding swatch: %w", err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing %s: %w", path, err)
	}
	return nil
}
