package editor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdfrecolor/contentstream"
	"github.com/tsawler/pdfrecolor/core"
	"github.com/tsawler/pdfrecolor/recolor"
	"github.com/tsawler/pdfrecolor/writer"
)

// ProgressFunc is called after each content stream is processed. Calls
// are serialized.
type ProgressFunc func(done, total int)

// Options controls a recolor run. The zero value is usable.
type Options struct {
	// Tolerance is the per-channel matching tolerance. Zero means
	// recolor.DefaultTolerance.
	Tolerance float64

	// PreserveOperator keeps RG as RG instead of emitting rg for every
	// replacement.
	PreserveOperator bool

	// Workers bounds how many streams are rewritten at once. Zero or less
	// means runtime.GOMAXPROCS(0).
	Workers int

	// Verify re-parses every rewritten stream and leaves it unchanged if
	// its operator sequence differs from the original.
	Verify bool

	Progress ProgressFunc
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Engine builds the recolor engine these options describe.
func (o Options) Engine(rules recolor.Rules) *recolor.Engine {
	var opts []recolor.Option
	if o.Tolerance > 0 {
		opts = append(opts, recolor.WithTolerance(o.Tolerance))
	}
	if o.PreserveOperator {
		opts = append(opts, recolor.WithPreservedOperator())
	}
	return recolor.New(rules, opts...)
}

// Report summarizes a recolor run.
type Report struct {
	Input        string
	Output       string
	Pages        int
	Streams      int // distinct content streams read
	Skipped      int // streams that could not be read or decoded
	Changed      int // streams written back
	Commands     int // color commands found
	Replaced     int // color commands replaced
	VerifyFailed int // rewrites discarded by verification
	Duration     time.Duration
}

type outcome struct {
	res      recolor.Result
	rejected error
}

// Recolor rewrites the colors of the document at in and writes the result
// to out. The output is always written, as an exact copy when nothing
// matched.
func Recolor(ctx context.Context, in, out string, rules recolor.Rules, opts Options) (*Report, error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)

	if err := CheckInput(in); err != nil {
		return nil, err
	}
	if err := CheckOutput(out); err != nil {
		return nil, err
	}

	r, err := Open(in)
	if err != nil {
		return nil, err
	}

	segments, pageCount, skipped, err := Collect(ctx, r)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Input:   in,
		Output:  out,
		Pages:   pageCount,
		Streams: len(segments),
		Skipped: skipped,
	}

	outcomes, err := rewriteAll(ctx, segments, opts.Engine(rules), opts)
	if err != nil {
		return nil, err
	}

	w := writer.New(r)
	for i, seg := range segments {
		o := outcomes[i]
		report.Commands += o.res.Commands
		report.Replaced += o.res.Replaced

		if o.rejected != nil {
			report.VerifyFailed++
			logger.Warn().Err(o.rejected).Int("object", seg.Ref.Number).Msg("rewrite failed verification, stream left unchanged")
			continue
		}
		if !o.res.Changed {
			continue
		}

		stream, err := core.NewFlateStream(seg.Dict, []byte(o.res.Text))
		if err != nil {
			return nil, errors.Errorf("encoding object %d: %w", seg.Ref.Number, err)
		}
		w.Replace(seg.Ref, stream)
		report.Changed++
	}

	if err := w.WriteFile(out); err != nil {
		return nil, errors.Errorf("writing %s: %w", out, err)
	}

	report.Duration = time.Since(start)
	logger.Info().
		Str("input", in).
		Str("output", out).
		Int("pages", report.Pages).
		Int("streams", report.Streams).
		Int("changed", report.Changed).
		Int("replaced", report.Replaced).
		Dur("took", report.Duration).
		Msg("recolored document")

	return report, nil
}

// rewriteAll runs the engine over every segment with a bounded number of
// goroutines. Results are indexed like segments.
func rewriteAll(ctx context.Context, segments []*Segment, engine *recolor.Engine, opts Options) ([]outcome, error) {
	logger := zerolog.Ctx(ctx)
	outcomes := make([]outcome, len(segments))

	var mu sync.Mutex
	done := 0
	step := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(done, len(segments))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := engine.Apply(seg.Text)
			o := outcome{res: res}
			if opts.Verify && res.Changed {
				o.rejected = contentstream.Verify([]byte(seg.Text), []byte(res.Text))
			}
			outcomes[i] = o

			logger.Debug().
				Int("object", seg.Ref.Number).
				Int("commands", res.Commands).
				Int("replaced", res.Replaced).
				Bool("changed", res.Changed).
				Msg("rewrote content stream")

			step()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("rewriting streams: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("rewriting streams: %w", err)
	}
	return outcomes, nil
}
