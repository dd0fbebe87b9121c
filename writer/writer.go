package writer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/tsawler/pdfrecolor/core"
)

// Source is the document an update is appended to. *reader.Reader
// satisfies it.
type Source interface {
	Data() []byte
	StartXRef() int64
	Trailer() core.Dict
	IsXRefStream() bool
}

// trailer entries that belong to a cross-reference stream or to the
// previous section and must not be copied into the new trailer.
var sectionOnlyKeys = []string{
	"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length", "DL",
}

// Incremental collects replacement objects and writes them as an
// incremental update: the original bytes unchanged, then the new objects,
// then a cross-reference section chaining back to the previous one.
type Incremental struct {
	src     Source
	objects map[int]replacement
}

type replacement struct {
	ref core.IndirectRef
	obj core.Object
}

type xrefRow struct {
	num    int
	gen    int
	offset int64
}

// New starts an update of src.
func New(src Source) *Incremental {
	return &Incremental{src: src, objects: make(map[int]replacement)}
}

// Replace schedules obj to be written as the new value of ref. A later call
// for the same object number wins.
func (w *Incremental) Replace(ref core.IndirectRef, obj core.Object) {
	w.objects[ref.Number] = replacement{ref: ref, obj: obj}
}

// Len returns the number of objects scheduled.
func (w *Incremental) Len() int {
	return len(w.objects)
}

// Bytes returns the complete updated document. With nothing scheduled it
// is a copy of the original.
func (w *Incremental) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the updated document to out.
func (w *Incremental) WriteTo(out io.Writer) (int64, error) {
	base := w.src.Data()

	var buf bytes.Buffer
	buf.Write(base)
	if len(w.objects) == 0 {
		n, err := out.Write(buf.Bytes())
		return int64(n), err
	}
	if len(base) > 0 && base[len(base)-1] != '\n' && base[len(base)-1] != '\r' {
		buf.WriteByte('\n')
	}

	nums := make([]int, 0, len(w.objects))
	for num := range w.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	rows := make([]xrefRow, 0, len(nums)+1)
	for _, num := range nums {
		r := w.objects[num]
		rows = append(rows, xrefRow{num: num, gen: r.ref.Generation, offset: int64(buf.Len())})
		fmt.Fprintf(&buf, "%d %d obj\n%s\nendobj\n", num, r.ref.Generation, r.obj.String())
	}

	trailer := w.src.Trailer().Clone()
	for _, key := range sectionOnlyKeys {
		delete(trailer, key)
	}
	trailer["Prev"] = core.Int(w.src.StartXRef())

	size := 0
	if s, ok := w.src.Trailer().GetInt("Size"); ok {
		size = int(s)
	}
	if last := nums[len(nums)-1] + 1; last > size {
		size = last
	}

	xrefOffset := int64(buf.Len())
	var err error
	if w.src.IsXRefStream() {
		err = writeXRefStream(&buf, rows, trailer, size, xrefOffset)
	} else {
		trailer["Size"] = core.Int(size)
		writeXRefTable(&buf, rows, trailer)
	}
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	if err != nil {
		return int64(n), errors.Errorf("writing document: %w", err)
	}
	return int64(n), nil
}

// subsections groups rows (sorted by number) into runs of consecutive
// object numbers.
func subsections(rows []xrefRow) [][]xrefRow {
	var out [][]xrefRow
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].num != rows[i-1].num+1 {
			out = append(out, rows[start:i])
			start = i
		}
	}
	return out
}

func writeXRefTable(buf *bytes.Buffer, rows []xrefRow, trailer core.Dict) {
	buf.WriteString("xref\n")
	for _, sub := range subsections(rows) {
		fmt.Fprintf(buf, "%d %d\n", sub[0].num, len(sub))
		for _, r := range sub {
			// Each entry is exactly 20 bytes including the two-byte EOL.
			fmt.Fprintf(buf, "%010d %05d n \n", r.offset, r.gen)
		}
	}
	fmt.Fprintf(buf, "trailer\n%s\n", trailer.String())
}

// writeXRefStream writes the section as an uncompressed cross-reference
// stream. The stream takes the first unused object number.
func writeXRefStream(buf *bytes.Buffer, rows []xrefRow, trailer core.Dict, size int, offset int64) error {
	if offset > 0xffffffff {
		return errors.Errorf("offset %d does not fit the 4-byte xref stream field", offset)
	}

	num := size
	rows = append(rows, xrefRow{num: num, offset: offset})

	var data bytes.Buffer
	index := core.Array{}
	for _, sub := range subsections(rows) {
		index = append(index, core.Int(sub[0].num), core.Int(len(sub)))
		for _, r := range sub {
			data.WriteByte(1)
			binary.Write(&data, binary.BigEndian, uint32(r.offset))
			binary.Write(&data, binary.BigEndian, uint16(r.gen))
		}
	}

	dict := trailer
	dict["Type"] = core.Name("XRef")
	dict["Size"] = core.Int(num + 1)
	dict["W"] = core.Array{core.Int(1), core.Int(4), core.Int(2)}
	dict["Index"] = index
	dict["Length"] = core.Int(data.Len())

	stream := &core.Stream{Dict: dict, Data: data.Bytes()}
	fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", num, stream.String())
	return nil
}

// WriteFile writes the updated document to path through a temporary file
// in the same directory, so a failed write never leaves a partial file.
func (w *Incremental) WriteFile(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Errorf("writing temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temporary file: %w", err)
	}
	return nil
}
