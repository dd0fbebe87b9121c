// Package reader opens PDF files and resolves their objects.
//
// The whole file is loaded into memory, so parsing an object never moves a
// shared file position and nested lookups (an indirect stream /Length, an
// object stored inside an object stream) are safe:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    return err
//	}
//	pages, err := r.Pages()
//
// Every cross-reference section reachable through /Prev is merged, so
// incrementally updated files resolve to their newest objects. The Reader
// also exposes what an incremental writer needs: the raw bytes
// ([Reader.Data]), the offset of the newest section ([Reader.StartXRef])
// and its form ([Reader.IsXRefStream]).
//
// A Reader caches objects and is not safe for concurrent use.
package reader
