package contentstream

import (
	"fmt"
	"sort"
	"strings"
)

// Census counts the operators of a content stream.
type Census struct {
	Operators map[string]int
	Total     int
	Inline    int // inline images
}

// Take parses data and counts its operators.
func Take(data []byte) (*Census, error) {
	ops, err := NewParser(data).Parse()
	if err != nil {
		return nil, err
	}
	return Count(ops), nil
}

// Count tallies already parsed operations.
func Count(ops []Operation) *Census {
	c := &Census{Operators: make(map[string]int)}
	for _, op := range ops {
		c.Operators[op.Operator]++
		c.Total++
		if op.Operator == "BI" {
			c.Inline++
		}
	}
	return c
}

// Add merges other into c.
func (c *Census) Add(other *Census) {
	if c.Operators == nil {
		c.Operators = make(map[string]int)
	}
	for op, n := range other.Operators {
		c.Operators[op] += n
	}
	c.Total += other.Total
	c.Inline += other.Inline
}

// Sorted returns the operators, most frequent first and alphabetically
// among equals.
func (c *Census) Sorted() []string {
	ops := make([]string, 0, len(c.Operators))
	for op := range c.Operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		ni, nj := c.Operators[ops[i]], c.Operators[ops[j]]
		if ni != nj {
			return ni > nj
		}
		return ops[i] < ops[j]
	})
	return ops
}

// Colors returns how many RGB color operators (rg and RG) were seen.
func (c *Census) Colors() int {
	return c.Operators["rg"] + c.Operators["RG"]
}

// MismatchError reports the first operation at which a rewritten stream
// departs from the original.
type MismatchError struct {
	Index  int
	Before string
	After  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("operation %d changed from %s to %s", e.Index, e.Before, e.After)
}

// Verify checks that after has the same structure as before: the same
// operators in the same order with the same operand counts. A stroke color
// operator (RG) rewritten as a fill color operator (rg) is accepted, as are
// changed operand values. Inline image data must be identical.
func Verify(before, after []byte) error {
	want, err := NewParser(before).Parse()
	if err != nil {
		return fmt.Errorf("parsing original stream: %w", err)
	}
	got, err := NewParser(after).Parse()
	if err != nil {
		return fmt.Errorf("parsing rewritten stream: %w", err)
	}

	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		w, g := want[i], got[i]
		if !sameOperator(w.Operator, g.Operator) || len(w.Operands) != len(g.Operands) {
			return &MismatchError{Index: i, Before: describe(w), After: describe(g)}
		}
		if string(w.Inline) != string(g.Inline) {
			return &MismatchError{Index: i, Before: "inline image", After: "altered inline image"}
		}
	}

	switch {
	case len(want) > n:
		return &MismatchError{Index: n, Before: describe(want[n]), After: "end of stream"}
	case len(got) > n:
		return &MismatchError{Index: n, Before: "end of stream", After: describe(got[n])}
	}
	return nil
}

func sameOperator(before, after string) bool {
	return before == after || (strings.EqualFold(before, "rg") && after == "rg")
}

func describe(op Operation) string {
	return fmt.Sprintf("%q with %d operands", op.Operator, len(op.Operands))
}
