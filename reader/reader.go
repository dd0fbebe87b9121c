package reader

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/pdfrecolor/core"
	"github.com/tsawler/pdfrecolor/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader gives random access to the objects of a PDF held in memory.
// It is not safe for concurrent use.
type Reader struct {
	data      []byte
	version   PDFVersion
	xref      *core.XRefTable
	startXRef int64

	objCache  map[int]core.Object
	objStms   map[int]*core.ObjectStream
	resolving map[int]bool
	pageTree  *pages.PageTree
}

var _ pages.ObjectResolver = (*Reader)(nil)

// Open reads the file at path and parses its cross-reference data.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return NewReader(data)
}

// NewReader parses the header and every cross-reference section of data.
// data must not be modified while the Reader is in use.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		data:      data,
		objCache:  make(map[int]core.Object),
		objStms:   make(map[int]*core.ObjectStream),
		resolving: make(map[int]bool),
	}

	version, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	xp := core.NewXRefParser(bytes.NewReader(data))
	tables, err := xp.ParseAllXRefs()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xref = core.MergeXRefTables(tables...)
	r.startXRef = tables[len(tables)-1].Offset

	return r, nil
}

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y within the first kilobyte; some producers
// put junk before it.
func parseHeader(data []byte) (PDFVersion, error) {
	head := data[:min(len(data), 1024)]
	m := headerPattern.FindSubmatch(head)
	if m == nil {
		return PDFVersion{}, fmt.Errorf("no %%PDF- header found")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the version from the file header.
func (r *Reader) Version() PDFVersion { return r.version }

// Data returns the raw file bytes.
func (r *Reader) Data() []byte { return r.data }

// Trailer returns the trailer of the newest cross-reference section.
func (r *Reader) Trailer() core.Dict { return r.xref.Trailer }

// StartXRef returns the offset of the newest cross-reference section,
// which an incremental update records as /Prev.
func (r *Reader) StartXRef() int64 { return r.startXRef }

// IsXRefStream reports whether the newest section is a cross-reference
// stream rather than a classic table.
func (r *Reader) IsXRefStream() bool { return r.xref.IsStream }

// XRefTable returns the merged cross-reference table.
func (r *Reader) XRefTable() *core.XRefTable { return r.xref }

// Encrypted reports whether the trailer names an /Encrypt dictionary.
func (r *Reader) Encrypted() bool { return r.xref.Trailer.Has("Encrypt") }

// NumObjects returns the trailer /Size: one more than the highest object
// number in use.
func (r *Reader) NumObjects() int {
	size, _ := r.xref.Trailer.GetInt("Size")
	return int(size)
}

// GetObject loads object objNum, following compressed entries into their
// object streams. Results are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xref.Get(objNum)
	if !ok || !entry.InUse {
		// References to missing or free objects resolve to null.
		return core.Null{}, nil
	}

	if r.resolving[objNum] {
		return nil, fmt.Errorf("circular reference while loading object %d", objNum)
	}
	r.resolving[objNum] = true
	defer delete(r.resolving, objNum)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefEntryCompressed:
		obj, err = r.loadCompressed(objNum, entry)
	default:
		obj, err = r.loadAt(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) loadAt(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d offset %d outside file", objNum, offset)
	}

	parser := core.NewParser(bytes.NewReader(r.data[offset:]))
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

func (r *Reader) loadCompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	stmNum := int(entry.Offset)
	objStm, ok := r.objStms[stmNum]
	if !ok {
		obj, err := r.GetObject(stmNum)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", stmNum, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %T", stmNum, obj)
		}
		if objStm, err = core.NewObjectStream(stream); err != nil {
			return nil, fmt.Errorf("object stream %d: %w", stmNum, err)
		}
		r.objStms[stmNum] = objStm
	}

	obj, num, err := objStm.GetObjectByIndex(entry.Generation)
	if err == nil && num == objNum {
		return obj, nil
	}
	// The index is only a hint; fall back to a search by number.
	obj, _, err = objStm.GetObjectByNumber(objNum)
	if err != nil {
		return nil, fmt.Errorf("object %d in stream %d: %w", objNum, stmNum, err)
	}
	return obj, nil
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve returns obj itself unless it is a reference, in which case the
// referenced object is loaded.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (*pages.Catalog, error) {
	rootRef, ok := r.xref.Trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root reference")
	}
	obj, err := r.ResolveReference(rootRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return pages.NewCatalog(dict, r), nil
}

// Pages returns every page of the document in order.
func (r *Reader) Pages() ([]*pages.Page, error) {
	if r.pageTree == nil {
		catalog, err := r.GetCatalog()
		if err != nil {
			return nil, err
		}
		root, err := catalog.Pages()
		if err != nil {
			return nil, err
		}
		r.pageTree = pages.NewPageTree(root, r)
	}
	return r.pageTree.Pages()
}

// PageCount returns the number of reachable pages.
func (r *Reader) PageCount() (int, error) {
	all, err := r.Pages()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if _, err := r.Pages(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}
