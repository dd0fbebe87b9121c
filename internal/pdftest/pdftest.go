// Package pdftest builds small PDF files for tests.
//
// Documents are assembled from object bodies written in PDF syntax and can
// be laid out with a classic xref table or, for PDF 1.5 style files, with
// the non-stream objects packed into an object stream and indexed by a
// cross-reference stream, optionally behind a classic table (hybrid).
package pdftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type object struct {
	body   string // dictionary or other object; for streams, the dictionary without /Length
	stream []byte
	isStm  bool
}

// Doc is a document under construction. Object numbers start at 1 and
// follow the order of the Add calls.
type Doc struct {
	objects []object
	root    int
	trailer string
}

// New returns an empty document.
func New() *Doc {
	return &Doc{}
}

// Add appends a non-stream object and returns its number.
func (d *Doc) Add(body string) int {
	d.objects = append(d.objects, object{body: body})
	return len(d.objects)
}

// AddStream appends a stream object. dict is the dictionary body without
// the << >> delimiters and without /Length, which is filled in.
func (d *Doc) AddStream(dict string, data []byte) int {
	d.objects = append(d.objects, object{body: dict, stream: data, isStm: true})
	return len(d.objects)
}

// Set replaces the body of object num, so objects can reference ones added
// after them.
func (d *Doc) Set(num int, body string) {
	d.objects[num-1].body = body
}

// SetRoot records the catalog object number.
func (d *Doc) SetRoot(num int) { d.root = num }

// SetTrailerExtra adds raw entries to the trailer dictionary.
func (d *Doc) SetTrailerExtra(entries string) { d.trailer = entries }

// Pages builds a document with one page per content string. Content
// streams are stored without a filter.
func Pages(contents ...string) *Doc {
	return buildPages(false, contents)
}

// FlatePages is like Pages but compresses each content stream with
// FlateDecode.
func FlatePages(contents ...string) *Doc {
	return buildPages(true, contents)
}

func buildPages(compress bool, contents []string) *Doc {
	d := New()
	catalog := d.Add("")
	pagesNum := d.Add("")

	kids := make([]string, 0, len(contents))
	for _, c := range contents {
		var content int
		if compress {
			content = d.AddStream("/Filter /FlateDecode", Deflate([]byte(c)))
		} else {
			content = d.AddStream("", []byte(c))
		}
		page := d.Add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", pagesNum, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}

	d.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesNum))
	d.Set(pagesNum, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(contents)))
	d.SetRoot(catalog)
	return d
}

// Deflate compresses data with zlib, as FlateDecode expects.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func writeStream(buf *bytes.Buffer, num int, dict string, data []byte) {
	fmt.Fprintf(buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream\nendobj\n")
}

// Classic lays the document out with a classic xref table.
func (d *Doc) Classic() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(d.objects))
	for i, o := range d.objects {
		offsets[i] = buf.Len()
		if o.isStm {
			writeStream(&buf, i+1, o.body, o.stream)
		} else {
			fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o.body)
		}
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(d.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R %s>>\nstartxref\n%d\n%%%%EOF\n",
		len(d.objects)+1, d.root, d.trailer, xref)
	return buf.Bytes()
}

// XRefStream lays the document out PDF 1.5 style: stream objects are
// written directly, every other object goes into one object stream, and a
// Flate-compressed cross-reference stream indexes them all.
func (d *Doc) XRefStream() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")

	locs, xrefNum := d.pack(&buf)
	xrefOffset := buf.Len()
	locs[xrefNum] = loc{1, xrefOffset, 0}

	writeStream(&buf, xrefNum, fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] /Root %d 0 R /Filter /FlateDecode %s",
		len(locs), d.root, d.trailer), Deflate(xrefRows(locs)))
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

// Hybrid lays the document out as a hybrid-reference file: objects are
// packed as in XRefStream, the cross-reference stream is named by /XRefStm,
// and startxref points at a classic table that lists the packed objects as
// free.
func (d *Doc) Hybrid() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")

	locs, xrefNum := d.pack(&buf)
	stmOffset := buf.Len()
	locs[xrefNum] = loc{1, stmOffset, 0}
	writeStream(&buf, xrefNum, fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] /Filter /FlateDecode", len(locs)),
		Deflate(xrefRows(locs)))

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(locs))
	for _, l := range locs[1:] {
		if l.typ == 1 {
			fmt.Fprintf(&buf, "%010d 00000 n \n", l.field1)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R /XRefStm %d %s>>\nstartxref\n%d\n%%%%EOF\n",
		len(locs), d.root, stmOffset, d.trailer, xref)
	return buf.Bytes()
}

type loc struct {
	typ    byte
	field1 int
	field2 int
}

// pack writes stream objects directly and every other object into one
// object stream. It returns the location of each object, with a slot left
// for the cross-reference stream, and that stream's object number.
func (d *Doc) pack(buf *bytes.Buffer) ([]loc, int) {
	objStmNum := len(d.objects) + 1
	xrefNum := objStmNum + 1
	locs := make([]loc, xrefNum+1)

	var header, body bytes.Buffer
	index := 0
	for i, o := range d.objects {
		num := i + 1
		if o.isStm {
			locs[num] = loc{1, buf.Len(), 0}
			writeStream(buf, num, o.body, o.stream)
			continue
		}
		fmt.Fprintf(&header, "%d %d ", num, body.Len())
		body.WriteString(o.body)
		body.WriteByte('\n')
		locs[num] = loc{2, objStmNum, index}
		index++
	}

	locs[objStmNum] = loc{1, buf.Len(), 0}
	objStmData := append(header.Bytes(), body.Bytes()...)
	writeStream(buf, objStmNum, fmt.Sprintf("/Type /ObjStm /N %d /First %d", index, header.Len()), objStmData)
	return locs, xrefNum
}

func xrefRows(locs []loc) []byte {
	var rows bytes.Buffer
	for i, l := range locs {
		if i == 0 {
			rows.Write([]byte{0, 0, 0, 0, 0, 0xff, 0xff})
			continue
		}
		rows.WriteByte(l.typ)
		binary.Write(&rows, binary.BigEndian, uint32(l.field1))
		binary.Write(&rows, binary.BigEndian, uint16(l.field2))
	}
	return rows.Bytes()
}

// WriteFile writes data into a fresh temporary directory and returns the
// file path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
