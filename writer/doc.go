// Package writer saves edited PDF objects as an incremental update.
//
// The original file is copied byte for byte and the replacement objects
// are appended after it, keeping their object and generation numbers. A
// new cross-reference section follows, in the same form as the section it
// chains to through /Prev: a classic table for classic files, an
// uncompressed cross-reference stream for PDF 1.5 files.
package writer
