package core

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// XRefEntryType distinguishes the three kinds of cross-reference entries.
type XRefEntryType int

const (
	XRefEntryFree         XRefEntryType = iota // free object
	XRefEntryUncompressed                      // object stored at a byte offset
	XRefEntryCompressed                        // object stored inside an object stream
)

// XRefEntry is a single cross-reference entry.
//
// For compressed entries Offset holds the number of the containing object
// stream and Generation holds the index within that stream.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	InUse      bool
}

// XRefTable maps object numbers to their locations.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	IsStream bool  // true when read from a cross-reference stream
	Offset   int64 // byte offset of this section in the file
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser reads cross-reference sections, both classic tables
// (PDF 1.0-1.4) and cross-reference streams (PDF 1.5+).
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	size, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}

	tail := int64(1024)
	if size < tail {
		tail = size
	}
	if _, err := x.reader.Seek(size-tail, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}

	buf := make([]byte, tail)
	n, err := io.ReadFull(x.reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	content := string(buf[:n])

	idx := strings.LastIndex(content, "startxref")
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}

	fields := strings.Fields(content[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("invalid startxref format")
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	return offset, nil
}

var indirectObjectHeader = regexp.MustCompile(`^\d+\s+\d+\s+obj`)

// isXRefStream sniffs the bytes at the current position: "xref" starts a
// classic table, "n g obj" starts a cross-reference stream. The read
// position is restored afterwards.
func (x *XRefParser) isXRefStream() (bool, error) {
	start, err := x.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}

	buf := make([]byte, 64)
	n, err := io.ReadFull(x.reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	if _, err := x.reader.Seek(start, io.SeekStart); err != nil {
		return false, err
	}

	head := bytes.TrimLeft(buf[:n], " \t\r\n\f\x00")
	switch {
	case bytes.HasPrefix(head, []byte("xref")):
		return false, nil
	case indirectObjectHeader.Match(head):
		return true, nil
	}
	return false, fmt.Errorf("no cross-reference section at offset %d", start)
}

// ParseXRef parses the cross-reference section at offset, whichever form
// it takes.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}

	isStream, err := x.isXRefStream()
	if err != nil {
		return nil, err
	}

	var table *XRefTable
	if isStream {
		table, err = x.parseXRefStream()
	} else {
		table, err = x.parseXRefTable()
	}
	if err != nil {
		return nil, err
	}
	table.Offset = offset

	// Hybrid files keep extra entries in a stream named by /XRefStm.
	if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok && !isStream {
		if _, err := x.reader.Seek(int64(stmOffset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek to XRefStm: %w", err)
		}
		extra, err := x.parseXRefStream()
		if err != nil {
			return nil, fmt.Errorf("failed to parse XRefStm: %w", err)
		}
		// Objects in object streams are listed as free in the table so
		// that older readers skip them; the stream entry wins over those.
		for num, entry := range extra.Entries {
			if cur, exists := table.Entries[num]; !exists || !cur.InUse {
				table.Set(num, entry)
			}
		}
	}

	return table, nil
}

// parseXRefTable parses a classic table starting at the xref keyword.
func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	data, err := io.ReadAll(x.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read xref: %w", err)
	}

	lines := newLineReader(data)
	if line, ok := lines.next(); !ok || line != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got '%s'", line)
	}

	table := NewXRefTable()
	for {
		line, ok := lines.next()
		if !ok {
			return nil, fmt.Errorf("xref table missing trailer")
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "trailer") {
			trailerStart := lines.lastStart + len("trailer")
			obj, err := NewParser(bytes.NewReader(data[trailerStart:])).ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
			}
			table.Trailer = trailer
			return table, nil
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header: %s", line)
		}
		first, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid count: %w", err)
		}

		for i := 0; i < count; i++ {
			entryLine, ok := lines.next()
			if !ok {
				return nil, fmt.Errorf("unexpected end of xref subsection")
			}
			entry, err := x.parseEntry(entryLine)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry: %w", err)
			}
			table.Set(first+i, entry)
		}
	}
}

// parseEntry parses "nnnnnnnnnn ggggg n" or "nnnnnnnnnn ggggg f".
func (x *XRefParser) parseEntry(line string) (*XRefEntry, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed xref entry: %q", line)
	}

	offset, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", parts[0], err)
	}
	generation, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q: %w", parts[1], err)
	}

	switch parts[2] {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: offset, Generation: generation, InUse: true}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: offset, Generation: generation}, nil
	}
	return nil, fmt.Errorf("invalid in-use flag: %q", parts[2])
}

// parseXRefStream parses a cross-reference stream object at the current
// position.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	indObj, err := NewParser(x.reader).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is %T, not a stream", indObj.Object)
	}

	if name, _ := stream.Dict.GetName("Type"); name != "XRef" {
		return nil, fmt.Errorf("xref stream has /Type %v, want /XRef", stream.Dict.Get("Type"))
	}
	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}
	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W must be an array of 3 integers")
	}
	w := make([]int, 3)
	for i, obj := range wArr {
		v, ok := obj.(Int)
		if !ok || v < 0 {
			return nil, fmt.Errorf("invalid /W[%d]: %v", i, obj)
		}
		w[i] = int(v)
	}

	index := []int{0, int(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		index = index[:0]
		for _, obj := range idxArr {
			v, ok := obj.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element: %v", obj)
			}
			index = append(index, int(v))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("/Index has odd length %d", len(index))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	table.Trailer = stream.Dict

	pos := 0
	for i := 0; i < len(index); i += 2 {
		for n := 0; n < index[i+1]; n++ {
			entry, read, err := x.parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, fmt.Errorf("entry for object %d: %w", index[i]+n, err)
			}
			pos += read
			table.Set(index[i]+n, entry)
		}
	}

	return table, nil
}

// parseXRefStreamEntry decodes one binary entry whose field widths are w.
// It returns the entry and the number of bytes consumed.
func (x *XRefParser) parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	width := w[0] + w[1] + w[2]
	if len(data) < width {
		return nil, 0, fmt.Errorf("need %d bytes, have %d", width, len(data))
	}

	kind := int64(1)
	if w[0] > 0 {
		kind = readBigEndianInt(data, w[0])
	}
	field1 := readBigEndianInt(data[w[0]:], w[1])
	field2 := readBigEndianInt(data[w[0]+w[1]:], w[2])

	entry := &XRefEntry{Offset: field1, Generation: int(field2)}
	switch kind {
	case 0:
		entry.Type = XRefEntryFree
	case 1:
		entry.Type = XRefEntryUncompressed
		entry.InUse = true
	case 2:
		entry.Type = XRefEntryCompressed
		entry.InUse = true
	default:
		// Unknown types are treated as references to the null object.
		entry.Type = XRefEntryFree
	}
	return entry, width, nil
}

// readBigEndianInt reads a width-byte unsigned big-endian integer.
func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width; i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

// ParseAllXRefs parses the newest cross-reference section and every older
// section reachable through /Prev, and returns them oldest first.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, fmt.Errorf("xref /Prev chain loops at offset %d", offset)
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xref at offset %d: %w", offset, err)
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			return tables, nil
		}
		offset = int64(prev)
	}
}

// MergeXRefTables merges sections given oldest first. Later entries
// override earlier ones; the newest trailer and form win.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
		merged.IsStream = table.IsStream
		merged.Offset = table.Offset
	}
	return merged
}

// lineReader yields lines terminated by LF, CR or CR LF, remembering where
// the last line started.
type lineReader struct {
	data      []byte
	pos       int
	lastStart int
}

func newLineReader(data []byte) *lineReader {
	return &lineReader{data: data}
}

func (l *lineReader) next() (string, bool) {
	if l.pos >= len(l.data) {
		return "", false
	}
	l.lastStart = l.pos
	end := l.pos
	for end < len(l.data) && l.data[end] != '\n' && l.data[end] != '\r' {
		end++
	}
	line := strings.TrimSpace(string(l.data[l.pos:end]))
	if end < len(l.data) && l.data[end] == '\r' && end+1 < len(l.data) && l.data[end+1] == '\n' {
		end++
	}
	l.pos = end + 1
	return line, true
}
