package editor

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tsawler/pdfrecolor/contentstream"
	"github.com/tsawler/pdfrecolor/recolor"
)

// excerptWidth is how many bytes of context are kept on each side of the
// first occurrence of a color.
const excerptWidth = 24

// ColorUse is one distinct color set by the document's color commands.
type ColorUse struct {
	Color       recolor.Color
	Count       int
	Fill        int // rg occurrences
	Stroke      int // RG occurrences
	Replacement recolor.Color
	Matched     bool // a rule would replace it

	// First occurrence, as raw stream bytes.
	Before, Match, After string
}

// Inventory is what Inspect found.
type Inventory struct {
	Pages   int
	Streams int
	Skipped int
	Colors  []*ColorUse // most used first
	Census  contentstream.Census
}

// Inspect lists the colors used by the document at path and which of them
// rules would replace. Nothing is written.
func Inspect(ctx context.Context, path string, rules recolor.Rules, opts Options) (*Inventory, error) {
	logger := zerolog.Ctx(ctx)

	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	segments, pageCount, skipped, err := Collect(ctx, r)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{Pages: pageCount, Streams: len(segments), Skipped: skipped}
	tol := opts.Engine(rules).Tolerance()
	byColor := make(map[recolor.Color]*ColorUse)

	for _, seg := range segments {
		if census, err := contentstream.Take([]byte(seg.Text)); err != nil {
			logger.Debug().Err(err).Int("object", seg.Ref.Number).Msg("content stream not tokenizable, operator census incomplete")
		} else {
			inv.Census.Add(census)
		}

		for cmd := range recolor.Commands(seg.Text) {
			c := cmd.Color()
			use, ok := byColor[c]
			if !ok {
				use = &ColorUse{Color: c}
				use.Replacement, use.Matched = rules.MatchWithin(c, tol)
				use.Before = seg.Text[max(0, cmd.Start-excerptWidth):cmd.Start]
				use.Match = cmd.Text
				use.After = seg.Text[cmd.End:min(len(seg.Text), cmd.End+excerptWidth)]
				byColor[c] = use
				inv.Colors = append(inv.Colors, use)
			}
			use.Count++
			// Only lowercase rg sets the fill color; RG and odd casings
			// count as stroke.
			if cmd.Operator != "rg" {
				use.Stroke++
			} else {
				use.Fill++
			}
		}
	}

	sort.SliceStable(inv.Colors, func(i, j int) bool {
		return inv.Colors[i].Count > inv.Colors[j].Count
	})
	return inv, nil
}
