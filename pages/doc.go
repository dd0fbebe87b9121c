// Package pages walks the page tree of a PDF document.
//
// [PageTree] flattens the tree into document order, carrying the
// inheritable attributes (/Resources, /MediaBox, /CropBox, /Rotate) down
// from intermediate nodes:
//
//	tree := pages.NewPageTree(root, resolver)
//	all, _ := tree.Pages()
//	refs, _ := all[0].ContentRefs()
//
// [Page.ContentRefs] keeps the object numbers of the content streams, which
// is what a caller needs in order to replace a stream in place.
//
// Lookups go through [ObjectResolver], so the package does not depend on
// the reader.
package pages
