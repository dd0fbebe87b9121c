// Package recolor rewrites RGB color commands in PDF content text.
//
// A color command is three numeric operands followed by rg (fill) or RG
// (stroke). [Commands] finds them, [Normalize] brings operands on the
// 0-255 scale down to 0-1, [Rules] picks the first rule whose target is
// within tolerance, and [Render] formats the replacement:
//
//	rules := recolor.Rules{{
//	    Target:      recolor.Color{R: 1},
//	    Replacement: recolor.Color{B: 1},
//	}}
//	out, changed := recolor.Rewrite("1 0 0 rg 0 0 10 10 re f", rules)
//	// out == "0.0000 0.0000 1.0000 rg 0 0 10 10 re f", changed == true
//
// Replacements are always written with the lowercase rg operator unless an
// [Engine] is built with [WithPreservedOperator]. Everything outside the
// replaced commands, whitespace included, is left byte for byte as it was.
//
// The package does no I/O and keeps no state; an [Engine] can be shared
// across goroutines.
package recolor
