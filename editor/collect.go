package editor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/tsawler/pdfrecolor/core"
	"github.com/tsawler/pdfrecolor/reader"
)

var (
	ErrInputNotFound     = errors.Base("input file not found")
	ErrOutputDirNotFound = errors.Base("output directory not found")
	ErrEncrypted         = errors.Base("encrypted documents are not supported")
)

// Segment is one decoded content stream.
type Segment struct {
	Ref   core.IndirectRef
	Dict  core.Dict
	Text  string // decoded bytes
	Pages []int  // 0-based indexes of the pages drawing this stream
}

// CheckInput fails with ErrInputNotFound unless path is an existing
// regular file.
func CheckInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return errors.Errorf("checking input: %w", err)
	}
	if info.IsDir() {
		return errors.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	return nil
}

// CheckOutput fails with ErrOutputDirNotFound unless the directory that
// would hold path exists.
func CheckOutput(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.Errorf("%w: %s", ErrOutputDirNotFound, dir)
	}
	return nil
}

// Open checks and opens the document at path. Encrypted documents are
// rejected because their streams cannot be decoded.
func Open(path string) (*reader.Reader, error) {
	if err := CheckInput(path); err != nil {
		return nil, err
	}
	r, err := reader.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	if r.Encrypted() {
		return nil, errors.Errorf("%w: %s", ErrEncrypted, path)
	}
	return r, nil
}

// Collect reads the content streams of every page in page order. A stream
// shared by several pages is returned once. Streams that are not streams
// or cannot be decoded are logged and counted in skipped.
func Collect(ctx context.Context, r *reader.Reader) (segments []*Segment, pageCount, skipped int, err error) {
	logger := zerolog.Ctx(ctx)

	all, err := r.Pages()
	if err != nil {
		return nil, 0, 0, errors.Errorf("reading page tree: %w", err)
	}

	seen := make(map[int]*Segment)
	bad := make(map[int]bool)

	for _, page := range all {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, errors.WithStack(err)
		}

		refs, err := page.ContentRefs()
		if err != nil {
			logger.Warn().Err(err).Int("page", page.Index()+1).Msg("skipping page contents")
			skipped++
			continue
		}

		for _, ref := range refs {
			if seg, ok := seen[ref.Number]; ok {
				seg.Pages = append(seg.Pages, page.Index())
				continue
			}
			if bad[ref.Number] {
				continue
			}

			seg, err := loadSegment(r, ref)
			if err != nil {
				logger.Warn().Err(err).Int("page", page.Index()+1).Int("object", ref.Number).Msg("skipping content stream")
				bad[ref.Number] = true
				skipped++
				continue
			}
			seg.Pages = []int{page.Index()}
			seen[ref.Number] = seg
			segments = append(segments, seg)

			logger.Debug().Int("page", page.Index()+1).Int("object", ref.Number).Int("bytes", len(seg.Text)).Msg("read content stream")
		}
	}

	return segments, len(all), skipped, nil
}

func loadSegment(r *reader.Reader, ref core.IndirectRef) (*Segment, error) {
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, errors.Errorf("loading object: %w", err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, errors.Errorf("object %d is %s, not a stream", ref.Number, obj.Type())
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, errors.Errorf("decoding stream: %w", err)
	}
	return &Segment{Ref: ref, Dict: stream.Dict, Text: string(data)}, nil
}
