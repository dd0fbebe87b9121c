package pages

import (
	"fmt"

	"github.com/tsawler/pdfrecolor/core"
)

// ObjectResolver resolves indirect references for the page tree.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// inheritable attributes a page picks up from its ancestors.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Catalog is the document catalog, the root of the document structure.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Type returns the /Type name, normally "Catalog".
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Pages returns the root node of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	pagesObj := c.dict.Get("Pages")
	if pagesObj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	resolved, err := c.resolver.Resolve(pagesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", resolved)
	}
	return dict, nil
}

// PageTree flattens the page tree into document order.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the /Count recorded in the root node. Use len(Pages()) for
// the number of pages actually reachable.
func (t *PageTree) Count() (int, error) {
	count, ok := t.root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree missing or invalid /Count: %v", t.root.Get("Count"))
	}
	return int(count), nil
}

// Pages returns every page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.load(); err != nil {
			return nil, err
		}
	}
	return t.pages, nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

func (t *PageTree) load() error {
	pages := make([]*Page, 0)
	visited := make(map[core.IndirectRef]bool)
	if err := t.walk(t.root, core.IndirectRef{}, core.Dict{}, visited, &pages); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = pages
	return nil
}

// walk visits node, whose own reference is ref (zero for the root reached
// directly). inherited carries attributes collected from ancestors.
func (t *PageTree) walk(node core.Dict, ref core.IndirectRef, inherited core.Dict, visited map[core.IndirectRef]bool, out *[]*Page) error {
	// Some writers omit /Type on leaves; treat a node without /Kids as a page.
	typeName, _ := node.GetName("Type")
	if typeName == "" {
		typeName = "Page"
		if node.Has("Kids") {
			typeName = "Pages"
		}
	}

	switch typeName {
	case "Pages":
		next := inherited.Clone()
		for _, key := range inheritable {
			if v := node.Get(key); v != nil {
				next[key] = v
			}
		}

		kidsObj, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsObj)
		}

		for i, kid := range kids {
			kidRef, isRef := kid.(core.IndirectRef)
			if isRef {
				if visited[kidRef] {
					return fmt.Errorf("page tree cycle at object %d", kidRef.Number)
				}
				visited[kidRef] = true
			}

			resolved, err := t.resolver.Resolve(kid)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := resolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", resolved)
			}
			if err := t.walk(kidDict, kidRef, next, visited, out); err != nil {
				return err
			}
		}

	case "Page":
		*out = append(*out, &Page{
			dict:      node,
			ref:       ref,
			index:     len(*out),
			inherited: inherited,
			resolver:  t.resolver,
		})

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// Page is a single leaf of the page tree.
type Page struct {
	dict      core.Dict
	ref       core.IndirectRef
	index     int
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary. inherited may be nil.
func NewPage(dict core.Dict, inherited core.Dict, resolver ObjectResolver) *Page {
	return &Page{dict: dict, inherited: inherited, resolver: resolver}
}

// Index returns the 0-based position of the page in the document.
func (p *Page) Index() int { return p.index }

// Ref returns the page object's reference, or the zero value when the page
// dictionary was reached directly.
func (p *Page) Ref() core.IndirectRef { return p.ref }

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

func (p *Page) attr(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	return p.inherited.Get(key)
}

// MediaBox returns the page's media box, looking through ancestors.
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns the crop box, defaulting to the media box.
func (p *Page) CropBox() ([]float64, error) {
	if p.attr("CropBox") == nil {
		return p.MediaBox()
	}
	return p.box("CropBox")
}

func (p *Page) box(name string) ([]float64, error) {
	obj := p.attr(name)
	if obj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s: %v", name, resolved)
	}

	box := make([]float64, 4)
	for i, elem := range arr {
		switch v := elem.(type) {
		case core.Int:
			box[i] = float64(v)
		case core.Real:
			box[i] = float64(v)
		default:
			return nil, fmt.Errorf("invalid %s element type: %T", name, elem)
		}
	}
	return box, nil
}

// Rotate returns the page rotation in degrees, 0 when unset.
func (p *Page) Rotate() int {
	if r, ok := p.attr("Rotate").(core.Int); ok {
		return int(r)
	}
	return 0
}

// Resources returns the (possibly inherited) resource dictionary, or nil.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.attr("Resources")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resolved)
	}
	return dict, nil
}

// ContentRefs returns the references of the page's content streams in
// drawing order. /Contents may name one stream or an array of streams,
// and the array itself may be indirect.
func (p *Page) ContentRefs() ([]core.IndirectRef, error) {
	contents := p.dict.Get("Contents")
	if contents == nil {
		return nil, nil
	}

	if ref, ok := contents.(core.IndirectRef); ok {
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Contents: %w", err)
		}
		switch v := resolved.(type) {
		case *core.Stream:
			return []core.IndirectRef{ref}, nil
		case core.Array:
			contents = v
		default:
			return nil, fmt.Errorf("invalid Contents type: %T", resolved)
		}
	}

	arr, ok := contents.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid Contents type: %T", contents)
	}

	refs := make([]core.IndirectRef, 0, len(arr))
	for i, elem := range arr {
		switch v := elem.(type) {
		case core.IndirectRef:
			refs = append(refs, v)
		case core.Null:
		default:
			return nil, fmt.Errorf("contents[%d] is %T, not a reference", i, elem)
		}
	}
	return refs, nil
}

// Contents returns the page's content streams, in the order of ContentRefs.
func (p *Page) Contents() ([]*core.Stream, error) {
	refs, err := p.ContentRefs()
	if err != nil {
		return nil, err
	}

	streams := make([]*core.Stream, 0, len(refs))
	for _, ref := range refs {
		obj, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve content stream %d: %w", ref.Number, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("content object %d is %T, not a stream", ref.Number, obj)
		}
		streams = append(streams, stream)
	}
	return streams, nil
}
