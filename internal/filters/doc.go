// Package filters implements the PDF stream filters needed to read content
// streams and to write recolored ones back.
//
// # Decoding
//
//	decoded, err := filters.FlateDecode(data, params)
//	decoded, err := filters.ASCIIHexDecode(data)
//	decoded, err := filters.ASCII85Decode(data)
//	decoded, err := filters.CCITTFaxDecode(data, params)
//
// FlateDecode honours the Predictor decode parameter:
//   - 1: no prediction (default)
//   - 2: TIFF Predictor 2
//   - 10-15: PNG predictors (None, Sub, Up, Average, Paeth)
//
// # Encoding
//
// Rewritten content streams are always stored Flate-compressed without a
// predictor:
//
//	encoded, err := filters.FlateEncode(data)
//
// # Decode Parameters
//
// Parameters arrive as a Params map converted from the stream's
// /DecodeParms dictionary:
//
//	params := filters.Params{"Predictor": 12, "Columns": 5}
package filters
