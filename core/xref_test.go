package core

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
	"testing"
)

// buildClassicPDF lays out objs as objects 1..n followed by a classic xref
// table and trailer, and returns the file and the xref offset.
func buildClassicPDF(objs []string, trailerExtra string) ([]byte, int) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R%s>>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, trailerExtra, xref)
	return buf.Bytes(), xref
}

func TestXRefTableBasics(t *testing.T) {
	table := NewXRefTable()
	table.Set(3, &XRefEntry{Type: XRefEntryUncompressed, Offset: 100, InUse: true})

	if table.Size() != 1 {
		t.Errorf("Size() = %d, want 1", table.Size())
	}
	entry, ok := table.Get(3)
	if !ok || entry.Offset != 100 {
		t.Errorf("Get(3) = %v, %v", entry, ok)
	}
	if _, ok := table.Get(4); ok {
		t.Error("Get(4) should not exist")
	}
}

func TestFindXRef(t *testing.T) {
	tests := []struct {
		name    string
		tail    string
		want    int64
		wantErr bool
	}{
		{"LF", "startxref\n1234\n%%EOF\n", 1234, false},
		{"CR", "startxref\r567\r%%EOF", 567, false},
		{"last wins", "startxref\n1\n%%EOF\nstartxref\n2\n%%EOF\n", 2, false},
		{"missing", "%%EOF\n", 0, true},
		{"garbage", "startxref\nabc\n%%EOF", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewXRefParser(strings.NewReader("%PDF-1.4\n" + tt.tail))
			got, err := p.FindXRef()
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindXRef() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FindXRef() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseEntry(t *testing.T) {
	p := NewXRefParser(strings.NewReader(""))

	tests := []struct {
		line    string
		want    XRefEntry
		wantErr bool
	}{
		{"0000000017 00000 n", XRefEntry{Type: XRefEntryUncompressed, Offset: 17, InUse: true}, false},
		{"0000000000 65535 f", XRefEntry{Type: XRefEntryFree, Generation: 65535}, false},
		{"0000000017 00000 x", XRefEntry{}, true},
		{"17 n", XRefEntry{}, true},
		{"abc 0 n", XRefEntry{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := p.parseEntry(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("parseEntry() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseClassicXRef(t *testing.T) {
	data, xref := buildClassicPDF([]string{
		"<</Type /Catalog /Pages 2 0 R>>",
		"<</Type /Pages /Kids [] /Count 0>>",
	}, " /Info <</Producer (x)>>")

	p := NewXRefParser(bytes.NewReader(data))
	table, err := p.ParseXRef(int64(xref))
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}

	if table.IsStream {
		t.Error("IsStream = true for a classic table")
	}
	if table.Size() != 3 {
		t.Errorf("Size() = %d, want 3", table.Size())
	}
	entry, _ := table.Get(1)
	if !entry.InUse || entry.Offset != 9 {
		t.Errorf("entry 1 = %+v, want in use at offset 9", entry)
	}
	if ref, ok := table.Trailer.GetIndirectRef("Root"); !ok || ref.Number != 1 {
		t.Errorf("trailer Root = %v, %v", ref, ok)
	}
	// A nested dictionary must not cut the trailer short.
	if _, ok := table.Trailer.GetDict("Info"); !ok {
		t.Error("trailer lost nested /Info dictionary")
	}
}

func TestParseClassicXRefMultipleSubsections(t *testing.T) {
	content := "xref\r\n0 1\r\n0000000000 65535 f\r\n5 2\r\n0000000100 00000 n\r\n0000000200 00001 n\r\ntrailer <</Size 7>>\r\n"
	p := NewXRefParser(strings.NewReader(content))
	table, err := p.ParseXRef(0)
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}

	entry, ok := table.Get(6)
	if !ok || entry.Offset != 200 || entry.Generation != 1 {
		t.Errorf("entry 6 = %+v, %v", entry, ok)
	}
	if _, ok := table.Get(1); ok {
		t.Error("entry 1 should not exist")
	}
}

func TestParseClassicXRefErrors(t *testing.T) {
	tests := map[string]string{
		"no trailer":       "xref\n0 1\n0000000000 65535 f \n",
		"short subsection": "xref\n0 3\n0000000000 65535 f \ntrailer\n<<>>",
		"bad header":       "xref\n0\n",
		"trailer not dict": "xref\n0 0\ntrailer\n[1]",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewXRefParser(strings.NewReader(content)).ParseXRef(0); err == nil {
				t.Errorf("ParseXRef() expected error")
			}
		})
	}
}

func TestParseAllXRefsPrevChain(t *testing.T) {
	data, firstXRef := buildClassicPDF([]string{
		"<</Type /Catalog>>",
		"(old)",
	}, "")

	// Append an update that replaces object 2.
	var buf bytes.Buffer
	buf.Write(data)
	newObj := buf.Len()
	buf.WriteString("2 0 obj\n(new)\nendobj\n")
	secondXRef := buf.Len()
	fmt.Fprintf(&buf, "xref\n2 1\n%010d 00000 n \ntrailer\n<</Size 3 /Root 1 0 R /Prev %d>>\nstartxref\n%d\n%%%%EOF\n",
		newObj, firstXRef, secondXRef)

	p := NewXRefParser(bytes.NewReader(buf.Bytes()))
	tables, err := p.ParseAllXRefs()
	if err != nil {
		t.Fatalf("ParseAllXRefs() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d sections, want 2", len(tables))
	}
	if tables[1].Offset != int64(secondXRef) {
		t.Errorf("newest section offset = %d, want %d", tables[1].Offset, secondXRef)
	}

	merged := MergeXRefTables(tables...)
	entry, _ := merged.Get(2)
	if entry.Offset != int64(newObj) {
		t.Errorf("merged entry 2 offset = %d, want %d", entry.Offset, newObj)
	}
	if _, ok := merged.Trailer.GetInt("Prev"); !ok {
		t.Error("merged trailer should be the newest trailer")
	}
}

func TestParseAllXRefsLoop(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 1\n0000000000 65535 f \ntrailer\n<</Size 1 /Prev %d>>\nstartxref\n%d\n%%%%EOF\n", xref, xref)

	if _, err := NewXRefParser(bytes.NewReader(buf.Bytes())).ParseAllXRefs(); err == nil {
		t.Error("expected error for a looping /Prev chain")
	}
}

func TestXRefStreamDetection(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantStream bool
		wantErr    bool
	}{
		{"classic", "xref\n0 6\n", false, false},
		{"leading whitespace", "\r\n xref\n", false, false},
		{"stream", "5 0 obj\n<</Type /XRef>>", true, false},
		{"invalid", "invalid content", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			got, err := NewXRefParser(r).isXRefStream()
			if (err != nil) != tt.wantErr {
				t.Fatalf("isXRefStream() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantStream {
				t.Errorf("isXRefStream() = %v, want %v", got, tt.wantStream)
			}
			if r.Len() != len(tt.content) {
				t.Error("isXRefStream() did not restore the read position")
			}
		})
	}
}

func TestReadBigEndianInt(t *testing.T) {
	tests := []struct {
		data  []byte
		width int
		want  int64
	}{
		{[]byte{0x42}, 1, 0x42},
		{[]byte{0x01, 0x02}, 2, 0x0102},
		{[]byte{0x01, 0x02, 0x03}, 3, 0x010203},
		{[]byte{0xff, 0xff, 0xff, 0xff}, 4, 0xffffffff},
		{nil, 0, 0},
	}

	for _, tt := range tests {
		if got := readBigEndianInt(tt.data, tt.width); got != tt.want {
			t.Errorf("readBigEndianInt(%v, %d) = %d, want %d", tt.data, tt.width, got, tt.want)
		}
	}
}

func TestParseXRefStreamEntry(t *testing.T) {
	p := NewXRefParser(strings.NewReader(""))

	tests := []struct {
		name string
		data []byte
		w    []int
		want XRefEntry
	}{
		{"free", []byte{0, 0, 0, 0xff, 0xff}, []int{1, 2, 2}, XRefEntry{Type: XRefEntryFree, Generation: 0xffff}},
		{"uncompressed", []byte{1, 0x01, 0x00, 0}, []int{1, 2, 1}, XRefEntry{Type: XRefEntryUncompressed, Offset: 256, InUse: true}},
		{"compressed", []byte{2, 0, 9, 3}, []int{1, 2, 1}, XRefEntry{Type: XRefEntryCompressed, Offset: 9, Generation: 3, InUse: true}},
		{"default type", []byte{0, 42, 0}, []int{0, 2, 1}, XRefEntry{Type: XRefEntryUncompressed, Offset: 42, InUse: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := p.parseXRefStreamEntry(tt.data, tt.w)
			if err != nil {
				t.Fatalf("parseXRefStreamEntry() error = %v", err)
			}
			if n != tt.w[0]+tt.w[1]+tt.w[2] {
				t.Errorf("bytes read = %d, want %d", n, tt.w[0]+tt.w[1]+tt.w[2])
			}
			if *got != tt.want {
				t.Errorf("parseXRefStreamEntry() = %+v, want %+v", *got, tt.want)
			}
		})
	}

	if _, _, err := p.parseXRefStreamEntry([]byte{1}, []int{1, 2, 1}); err == nil {
		t.Error("expected error for truncated entry")
	}
}

func xrefStreamObject(t *testing.T, dict string, rows []byte) string {
	t.Helper()
	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	w.Write(rows)
	w.Close()
	return fmt.Sprintf("9 0 obj\n<<%s /Filter /FlateDecode /Length %d>>\nstream\n%s\nendstream\nendobj\n", dict, z.Len(), z.String())
}

func TestParseXRefStream(t *testing.T) {
	rows := []byte{
		0, 0, 0, 0xff,
		1, 0, 15, 0,
		2, 0, 9, 0,
		2, 0, 9, 1,
	}
	content := xrefStreamObject(t, "/Type /XRef /Size 4 /W [1 2 1] /Root 1 0 R", rows)

	p := NewXRefParser(strings.NewReader(content))
	table, err := p.ParseXRef(0)
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}

	if !table.IsStream {
		t.Error("IsStream = false for an xref stream")
	}
	if table.Size() != 4 {
		t.Errorf("Size() = %d, want 4", table.Size())
	}
	if e, _ := table.Get(1); e.Type != XRefEntryUncompressed || e.Offset != 15 {
		t.Errorf("entry 1 = %+v", e)
	}
	if e, _ := table.Get(3); e.Type != XRefEntryCompressed || e.Offset != 9 || e.Generation != 1 {
		t.Errorf("entry 3 = %+v", e)
	}
	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("stream dictionary should serve as trailer")
	}
}

func TestParseXRefStreamIndex(t *testing.T) {
	rows := []byte{1, 0, 10, 0, 1, 0, 20, 0, 1, 0, 30, 0}
	content := xrefStreamObject(t, "/Type /XRef /Size 12 /W [1 2 1] /Index [3 1 10 2]", rows)

	table, err := NewXRefParser(strings.NewReader(content)).ParseXRef(0)
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}
	for num, off := range map[int]int64{3: 10, 10: 20, 11: 30} {
		if e, ok := table.Get(num); !ok || e.Offset != off {
			t.Errorf("entry %d = %+v, want offset %d", num, e, off)
		}
	}
}

func TestParseXRefStreamErrors(t *testing.T) {
	tests := map[string]string{
		"missing type": "5 0 obj\n<</Size 1 /W [1 2 1] /Length 0>>\nstream\nendstream\nendobj\n",
		"wrong type":   "5 0 obj\n<</Type /ObjStm /Size 1 /W [1 2 1] /Length 0>>\nstream\nendstream\nendobj\n",
		"missing size": "5 0 obj\n<</Type /XRef /W [1 2 1] /Length 0>>\nstream\nendstream\nendobj\n",
		"missing W":    "5 0 obj\n<</Type /XRef /Size 1 /Length 0>>\nstream\nendstream\nendobj\n",
		"short W":      "5 0 obj\n<</Type /XRef /Size 1 /W [1 2] /Length 0>>\nstream\nendstream\nendobj\n",
		"no data":      "5 0 obj\n<</Type /XRef /Size 1 /W [1 2 1] /Length 0>>\nstream\nendstream\nendobj\n",
		"not a stream": "5 0 obj\n<</Type /XRef>>\nendobj\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewXRefParser(strings.NewReader(content)).parseXRefStream(); err == nil {
				t.Error("parseXRefStream() expected error")
			}
		})
	}
}

func TestParseHybridXRef(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	stmOffset := buf.Len()
	buf.WriteString(xrefStreamObject(t, "/Type /XRef /Size 4 /W [1 2 1] /Index [3 1]", []byte{2, 0, 7, 0}))
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 2\n0000000000 65535 f \n0000000009 00000 n \ntrailer\n<</Size 4 /XRefStm %d>>\n", stmOffset)

	table, err := NewXRefParser(bytes.NewReader(buf.Bytes())).ParseXRef(int64(xref))
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}
	e, ok := table.Get(3)
	if !ok || e.Type != XRefEntryCompressed || e.Offset != 7 {
		t.Errorf("entry 3 from XRefStm = %+v, %v", e, ok)
	}
	if table.IsStream {
		t.Error("hybrid file should report a classic table")
	}
}

func TestParseHybridXRefFreeInTable(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	stmOffset := buf.Len()
	buf.WriteString(xrefStreamObject(t, "/Type /XRef /Size 4 /W [1 2 1] /Index [2 2]", []byte{1, 0, 9, 0, 2, 0, 7, 0}))
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 4\n0000000000 65535 f \n0000000009 00000 n \n0000000042 00000 n \n0000000000 65535 f \ntrailer\n<</Size 4 /XRefStm %d>>\n", stmOffset)

	table, err := NewXRefParser(bytes.NewReader(buf.Bytes())).ParseXRef(int64(xref))
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}

	tests := []struct {
		num    int
		typ    XRefEntryType
		offset int64
	}{
		{1, XRefEntryUncompressed, 9},
		{2, XRefEntryUncompressed, 42}, // in use in the table, table wins
		{3, XRefEntryCompressed, 7},    // free in the table, stream wins
	}
	for _, tt := range tests {
		e, ok := table.Get(tt.num)
		if !ok || e.Type != tt.typ || e.Offset != tt.offset || !e.InUse {
			t.Errorf("entry %d = %+v, %v; want type %v offset %d", tt.num, e, ok, tt.typ, tt.offset)
		}
	}
}
