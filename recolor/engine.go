package recolor

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// commandPattern matches three numeric operands followed by rg or RG, in
// any letter case. \s is ASCII whitespace only.
var commandPattern = regexp.MustCompile(`(?i)(-?\d+\.?\d*)\s+(-?\d+\.?\d*)\s+(-?\d+\.?\d*)\s+(rg)`)

// Command is one color command found in content text.
type Command struct {
	Values   [3]float64 // operands as written
	Operator string     // "rg", "RG" or another casing, as written
	Start    int        // byte offset of the first operand
	End      int        // byte offset just past the operator
	Text     string     // text[Start:End]
}

// Color returns the normalized color the command sets.
func (c Command) Color() Color {
	return Normalize(c.Values[0], c.Values[1], c.Values[2])
}

// Commands yields the color commands of text from left to right, without
// overlaps. Scanning happens as the sequence is consumed; ranging over it
// again starts a fresh scan.
func Commands(text string) iter.Seq[Command] {
	return func(yield func(Command) bool) {
		pos := 0
		for pos < len(text) {
			loc := commandPattern.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}
			if !yield(newCommand(text, pos, loc)) {
				return
			}
			pos += loc[1]
		}
	}
}

func newCommand(text string, base int, loc []int) Command {
	cmd := Command{
		Start:    base + loc[0],
		End:      base + loc[1],
		Operator: text[base+loc[8] : base+loc[9]],
	}
	cmd.Text = text[cmd.Start:cmd.End]
	for i := range cmd.Values {
		// The pattern only admits well-formed numbers.
		cmd.Values[i], _ = strconv.ParseFloat(text[base+loc[2+2*i]:base+loc[3+2*i]], 64)
	}
	return cmd
}

// Rule maps a target color to its replacement.
type Rule struct {
	Target      Color
	Replacement Color
}

// Rules is an ordered rule set. Order matters: the first matching rule
// wins, even when several targets are within tolerance of a color.
type Rules []Rule

// Match returns the replacement of the first rule whose target is within
// DefaultTolerance of c.
func (rs Rules) Match(c Color) (Color, bool) {
	return rs.MatchWithin(c, DefaultTolerance)
}

// MatchWithin is Match with an explicit tolerance.
func (rs Rules) MatchWithin(c Color, tol float64) (Color, bool) {
	for _, r := range rs {
		if c.Within(r.Target, tol) {
			return r.Replacement, true
		}
	}
	return Color{}, false
}

// Rewrite replaces every color command in text whose color matches a rule
// and reports whether the result differs from text.
func Rewrite(text string, rules Rules) (string, bool) {
	return New(rules).Rewrite(text)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance sets the per-channel matching tolerance.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		e.tolerance = tol
	}
}

// WithPreservedOperator keeps the operator of each replaced command as it
// was written, so stroke colors (RG) stay stroke colors. Without it every
// replacement is emitted as rg.
func WithPreservedOperator() Option {
	return func(e *Engine) {
		e.preserveOperator = true
	}
}

// Engine applies a fixed rule set to content text. It holds no mutable
// state and may be shared between goroutines.
type Engine struct {
	rules            Rules
	tolerance        float64
	preserveOperator bool
}

// New returns an engine for rules. The slice is copied.
func New(rules Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:     append(Rules(nil), rules...),
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the engine's rules.
func (e *Engine) Rules() Rules {
	return append(Rules(nil), e.rules...)
}

// Tolerance returns the matching tolerance.
func (e *Engine) Tolerance() float64 {
	return e.tolerance
}

// Result describes one rewrite.
type Result struct {
	Text     string
	Changed  bool
	Commands int // color commands found
	Replaced int // commands that matched a rule
}

// Rewrite is Apply reduced to the text and the changed flag.
func (e *Engine) Rewrite(text string) (string, bool) {
	res := e.Apply(text)
	return res.Text, res.Changed
}

// Apply rewrites text. The output is assembled left to right from the
// original text and the rendered replacements; bytes outside replaced
// commands are copied unchanged.
func (e *Engine) Apply(text string) Result {
	var b strings.Builder
	res := Result{}
	last := 0

	for cmd := range Commands(text) {
		res.Commands++
		repl, ok := e.rules.MatchWithin(cmd.Color(), e.tolerance)
		if !ok {
			continue
		}
		res.Replaced++

		op := "rg"
		if e.preserveOperator {
			op = cmd.Operator
		}
		b.WriteString(text[last:cmd.Start])
		b.WriteString(renderOp(repl, op))
		last = cmd.End
	}

	if res.Replaced == 0 {
		res.Text = text
		return res
	}

	b.WriteString(text[last:])
	res.Text = b.String()
	res.Changed = res.Text != text
	return res
}
