// Package editor recolors whole PDF documents.
//
// Recolor opens a document, reads every page content stream once, runs the
// recolor engine over the streams concurrently and writes the streams that
// changed back as an incremental update:
//
//	report, err := editor.Recolor(ctx, "in.pdf", "out.pdf", rules, editor.Options{})
//
// Inspect reports which colors a document uses without writing anything.
//
// Both log through the zerolog logger stored in ctx, if any.
package editor
