package contentstream

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tsawler/pdfrecolor/core"
)

// Operation is a single content stream operation: an operator and the
// operands that precede it.
type Operation struct {
	Operator string        // e.g. "Tj", "rg", "q"
	Operands []core.Object // operands in stream order
	Offset   int           // byte offset of the operator
	Inline   []byte        // image data between ID and EI, for BI only
}

// Parser splits a content stream into operations. Operands are kept as
// core objects so colors and strings can be inspected.
type Parser struct {
	data     []byte
	pos      int
	ops      []Operation
	operands []core.Object
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Parse parses the content stream and returns all operations in order.
// Operands left over after the last operator are dropped.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			break
		}
		if err := p.parseNext(); err != nil {
			return nil, err
		}
	}
	return p.ops, nil
}

func (p *Parser) parseNext() error {
	start := p.pos
	c := p.data[p.pos]

	if isRegular(c) && !isNumberStart(c) {
		return p.parseKeyword()
	}

	operand, err := p.parseOperand()
	if err != nil {
		return fmt.Errorf("at position %d: %w", start, err)
	}
	p.operands = append(p.operands, operand)
	return nil
}

// parseKeyword reads a run of regular characters. The keywords true, false
// and null are operands; everything else is an operator.
func (p *Parser) parseKeyword() error {
	start := p.pos
	for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		p.pos++
	}
	word := string(p.data[start:p.pos])

	switch word {
	case "true":
		p.operands = append(p.operands, core.Bool(true))
		return nil
	case "false":
		p.operands = append(p.operands, core.Bool(false))
		return nil
	case "null":
		p.operands = append(p.operands, core.Null{})
		return nil
	case "BI":
		return p.parseInlineImage(start)
	}

	p.emit(word, start)
	return nil
}

func (p *Parser) emit(operator string, offset int) {
	op := Operation{Operator: operator, Offset: offset}
	if len(p.operands) > 0 {
		op.Operands = make([]core.Object, len(p.operands))
		copy(op.Operands, p.operands)
	}
	p.ops = append(p.ops, op)
	p.operands = p.operands[:0]
}

// parseInlineImage reads BI <key value pairs> ID <data> EI and emits it as
// one BI operation whose single operand is the parameter dictionary. The
// image data may contain any bytes, including ones that look like color
// commands, so it is never tokenized.
func (p *Parser) parseInlineImage(start int) error {
	params := core.Dict{}
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return fmt.Errorf("at position %d: inline image without ID", start)
		}
		if p.data[p.pos] != '/' {
			break
		}
		key, err := p.parseName()
		if err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return fmt.Errorf("at position %d: inline image without ID", start)
		}
		var value core.Object
		if isRegular(p.data[p.pos]) && !isNumberStart(p.data[p.pos]) {
			// Bare keywords such as true or an abbreviated filter name.
			kwStart := p.pos
			for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
				p.pos++
			}
			switch word := string(p.data[kwStart:p.pos]); word {
			case "true", "false":
				value = core.Bool(word == "true")
			default:
				value = core.Name(word)
			}
		} else {
			value, err = p.parseOperand()
			if err != nil {
				return fmt.Errorf("at position %d: %w", start, err)
			}
		}
		params[string(key.(core.Name))] = value
	}

	if !bytes.HasPrefix(p.data[p.pos:], []byte("ID")) {
		return fmt.Errorf("at position %d: inline image without ID", start)
	}
	p.pos += 2
	// A single whitespace byte separates ID from the data.
	if p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}

	dataStart := p.pos
	end := findEI(p.data, p.pos)
	if end < 0 {
		return fmt.Errorf("at position %d: inline image without EI", start)
	}

	dataEnd := end
	if dataEnd > dataStart && isWhitespace(p.data[dataEnd-1]) {
		dataEnd--
	}

	p.operands = append(p.operands, params)
	p.emit("BI", start)
	p.ops[len(p.ops)-1].Inline = p.data[dataStart:dataEnd]
	p.pos = end + 2
	return nil
}

// findEI returns the offset of the first EI keyword at or after from that
// is preceded by whitespace and followed by whitespace or the end of data.
func findEI(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > from && !isWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !isWhitespace(data[i+2]) && !isDelimiter(data[i+2]) {
			continue
		}
		return i
	}
	return -1
}

// parseOperand parses a single operand: a number, string, name, array or
// dictionary.
func (p *Parser) parseOperand() (core.Object, error) {
	p.skipWhitespaceAndComments()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of stream")
	}

	c := p.data[p.pos]
	switch {
	case isNumberStart(c):
		return p.parseNumber()
	case c == '(':
		return p.parseString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	}

	if isRegular(c) {
		start := p.pos
		for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
			p.pos++
		}
		switch word := string(p.data[start:p.pos]); word {
		case "true":
			return core.Bool(true), nil
		case "false":
			return core.Bool(false), nil
		case "null":
			return core.Null{}, nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q in operand", word)
		}
	}

	return nil, fmt.Errorf("unexpected character at position %d: %q", p.pos, c)
}

// parseNumber parses an integer or real number operand.
func (p *Parser) parseNumber() (core.Object, error) {
	start := p.pos
	hasDecimal := false

	if p.data[p.pos] == '+' || p.data[p.pos] == '-' {
		p.pos++
	}

	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' && !hasDecimal {
			hasDecimal = true
			p.pos++
		} else {
			break
		}
	}

	numStr := string(p.data[start:p.pos])
	switch numStr {
	case "+", "-", ".", "+.", "-.":
		// Producers occasionally write a lone sign or dot; read it as zero.
		return core.Int(0), nil
	}

	if hasDecimal {
		val, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", numStr, err)
		}
		return core.Real(val), nil
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		// Out of int64 range; keep the magnitude as a real.
		f, ferr := strconv.ParseFloat(numStr, 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", numStr, err)
		}
		return core.Real(f), nil
	}
	return core.Int(val), nil
}

// parseString parses a literal string (...) with escape sequence handling.
func (p *Parser) parseString() (core.Object, error) {
	p.pos++ // skip '('

	var result bytes.Buffer
	depth := 1

	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]

		switch {
		case c == '\\' && p.pos+1 < len(p.data):
			p.pos++
			next := p.data[p.pos]
			p.pos++
			switch next {
			case 'n':
				result.WriteByte('\n')
			case 'r':
				result.WriteByte('\r')
			case 't':
				result.WriteByte('\t')
			case 'b':
				result.WriteByte('\b')
			case 'f':
				result.WriteByte('\f')
			case '\r':
				// Line continuation.
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := int(next - '0')
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					d := p.data[p.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + int(d-'0')
					p.pos++
				}
				result.WriteByte(byte(val))
			default:
				// \( \) \\ and unknown escapes keep the escaped byte.
				result.WriteByte(next)
			}
		case c == '(':
			depth++
			result.WriteByte(c)
			p.pos++
		case c == ')':
			depth--
			if depth > 0 {
				result.WriteByte(c)
			}
			p.pos++
		default:
			result.WriteByte(c)
			p.pos++
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unclosed string")
	}
	return core.String(result.String()), nil
}

// parseHexString parses a hexadecimal string <...>. An odd final digit is
// padded with zero.
func (p *Parser) parseHexString() (core.Object, error) {
	p.pos++ // skip '<'

	var result bytes.Buffer
	var hi byte
	odd := false

	for {
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed hex string")
		}
		c := p.data[p.pos]
		p.pos++

		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return nil, fmt.Errorf("invalid hex digit: %q", c)
		}
		if odd {
			result.WriteByte(hi<<4 | hexValue(c))
		} else {
			hi = hexValue(c)
		}
		odd = !odd
	}

	if odd {
		result.WriteByte(hi << 4)
	}
	return core.String(result.String()), nil
}

// parseName parses a name object /Name with # escape handling.
func (p *Parser) parseName() (core.Object, error) {
	p.pos++ // skip '/'

	var result bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.data) && isHexDigit(p.data[p.pos+1]) && isHexDigit(p.data[p.pos+2]) {
			result.WriteByte(hexValue(p.data[p.pos+1])<<4 | hexValue(p.data[p.pos+2]))
			p.pos += 3
			continue
		}
		result.WriteByte(c)
		p.pos++
	}

	return core.Name(result.String()), nil
}

// parseArray parses an array [...] of operands.
func (p *Parser) parseArray() (core.Object, error) {
	p.pos++ // skip '['

	arr := core.Array{}
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}

		obj, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a dictionary <<...>>, as used by marked content
// operators such as BDC.
func (p *Parser) parseDict() (core.Object, error) {
	p.pos += 2 // skip '<<'

	dict := core.Dict{}
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed dictionary")
		}
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name")
		}

		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		dict[string(key.(core.Name))] = value
	}
}

func (p *Parser) skipWhitespaceAndComments() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

// isDelimiter reports whether c is a PDF delimiter character.
func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' ||
		c == '/' || c == '%'
}

// isRegular reports whether c can be part of an operator or keyword.
// Operators include letters, digits (d0, d1) and the characters ' " *.
func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func isNumberStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

// isHexDigit reports whether c is a hexadecimal digit.
func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// hexValue returns the numeric value of a hexadecimal digit.
func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
