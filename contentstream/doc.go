// Package contentstream tokenizes PDF content streams into operations.
//
// A content stream is a sequence of operands followed by the operator that
// consumes them:
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Printf("%s %v\n", op.Operator, op.Operands)
//	}
//
// Inline images (BI ... ID ... EI) are returned as a single BI operation
// carrying the parameter dictionary and the raw image bytes, so binary image
// data is never mistaken for operators.
//
// # Census and verification
//
// Take counts the operators of a stream. Verify compares a stream before and
// after a color rewrite and fails if anything other than operand values (and
// RG becoming rg) changed.
package contentstream
