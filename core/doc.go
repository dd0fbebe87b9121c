// Package core holds the PDF object model and the low-level parsing pieces
// that the reader and writer are built on.
//
// Every value type satisfies [Object], whose String method renders the
// value back into PDF syntax. Dictionaries render with sorted keys, so a
// dictionary always produces the same bytes.
//
// # Parsing
//
// [Lexer] turns raw bytes into tokens and [Parser] assembles them into
// objects, including complete "n g obj ... endobj" definitions and streams.
// A [ReferenceResolver] lets the parser follow an indirect /Length.
//
// # Cross-reference data
//
// [XRefParser] reads classic xref tables, cross-reference streams and
// hybrid files, and walks the /Prev chain of incrementally updated files.
// Objects held in compressed entries live in an [ObjectStream].
//
// # Streams
//
// [Stream.Decode] applies the FlateDecode, ASCIIHexDecode, ASCII85Decode and
// CCITTFaxDecode filters in order. Other filters yield
// [ErrUnsupportedFilter]. [NewFlateStream] produces a replacement stream.
package core
