// Package palette loads color replacement rules.
//
// Rules are written as records of two #RRGGBB hex colors:
//
//	[
//	  {"target": "#FF0000", "replacement": "#802020"}
//	]
//
// Files ending in .yaml or .yml hold the same records in YAML. Any other
// extension is read as JSON. Loading is all-or-nothing: a single bad record
// fails the whole file.
//
// Swatch renders a rule set as a before/after preview image.
package palette
