package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWhitespace
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, etc.
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R (after two numbers)
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Position in stream
}

// Lexer splits PDF syntax into tokens.
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// NextToken skips whitespace and returns the next token. At end of input
// it returns a TokenEOF token rather than an error.
func (l *Lexer) NextToken() (*Token, error) {
	l.skipWhitespace()

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch {
	case b == '%':
		return l.readComment()
	case b == '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case b == ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case b == '(':
		return l.readString()
	case b == '<':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '<' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case b == '>':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '>' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", l.pos)
	case b == '/':
		return l.readName()
	case isDigit(b) || b == '-' || b == '+' || b == '.':
		return l.readNumber()
	case isAlpha(b):
		return l.readKeyword()
	}

	return nil, fmt.Errorf("unexpected character '%c' at position %d", b, l.pos)
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	p, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// skipWhitespace consumes PDF whitespace: space, tab, LF, CR, FF and NUL.
func (l *Lexer) skipWhitespace() {
	for {
		b, err := l.peek()
		if err != nil || !isWhitespace(b) {
			return
		}
		l.readByte()
	}
}

// readComment reads from '%' up to, and consuming, the end of line.
func (l *Lexer) readComment() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		l.readByte()
		if b == '\r' || b == '\n' {
			if next, err := l.peek(); err == nil && b == '\r' && next == '\n' {
				l.readByte()
			}
			break
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: start}, nil
}

// readString reads a literal string, resolving escapes and balanced
// parentheses.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte() // (

	var buf bytes.Buffer
	for depth := 1; ; {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at position %d: %w", start, err)
		}

		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
		case '\\':
			if err := l.readEscape(&buf); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteByte(b)
	}
}

// readEscape decodes the character sequence following a backslash.
func (l *Lexer) readEscape(buf *bytes.Buffer) error {
	next, err := l.readByte()
	if err != nil {
		return err
	}

	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if p, err := l.peek(); err == nil && p == '\n' {
			l.readByte()
		}
	case '\n':
		// line continuation
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := next - '0'
		for i := 0; i < 2; i++ {
			p, err := l.peek()
			if err != nil || !isOctalDigit(p) {
				break
			}
			l.readByte()
			val = val*8 + (p - '0')
		}
		buf.WriteByte(val)
	default:
		buf.WriteByte(next)
	}
	return nil
}

// readHexString reads <...>, keeping only the hex digits.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte() // <

	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at position %d: %w", start, err)
		}
		switch {
		case b == '>':
			return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
		case isWhitespace(b):
		case isHexDigit(b):
			buf.WriteByte(b)
		default:
			return nil, fmt.Errorf("invalid hex digit '%c' at position %d", b, l.pos-1)
		}
	}
}

// readName reads /Name, decoding #xx escapes.
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte() // /

	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF || (err == nil && (isWhitespace(b) || isDelimiter(b))) {
			break
		}
		if err != nil {
			return nil, err
		}
		l.readByte()

		if b != '#' {
			buf.WriteByte(b)
			continue
		}
		hex, err := l.reader.Peek(2)
		if err != nil || !isHexDigit(hex[0]) || !isHexDigit(hex[1]) {
			return nil, fmt.Errorf("invalid hex escape in name at position %d", l.pos-1)
		}
		l.readByte()
		l.readByte()
		buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readNumber reads an integer or a real. A second decimal point ends the
// number.
func (l *Lexer) readNumber() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	tokenType := TokenInteger

	for {
		b, err := l.peek()
		if err != nil {
			break
		}
		switch {
		case b == '.' && tokenType == TokenInteger:
			tokenType = TokenReal
		case isDigit(b), buf.Len() == 0 && (b == '-' || b == '+'):
		default:
			return &Token{Type: tokenType, Value: buf.Bytes(), Pos: start}, nil
		}
		l.readByte()
		buf.WriteByte(b)
	}

	return &Token{Type: tokenType, Value: buf.Bytes(), Pos: start}, nil
}

// readKeyword reads a bare keyword such as obj, stream, true or R.
func (l *Lexer) readKeyword() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer

	for {
		b, err := l.peek()
		if err != nil || !(isAlpha(b) || isDigit(b)) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	if buf.Len() == 1 && buf.Bytes()[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: buf.Bytes(), Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: buf.Bytes(), Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword: LF or CR LF. A lone CR is tolerated.
func (l *Lexer) SkipStreamEOL() error {
	// Some writers put spaces before the EOL.
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if b != ' ' {
			break
		}
		l.readByte()
	}

	b, err := l.peek()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		l.readByte()
	case '\r':
		l.readByte()
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
	}
	return nil
}

// ReadBytes reads exactly n bytes from the underlying reader.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	read, err := io.ReadFull(l.reader, data)
	l.pos += int64(read)
	if err != nil {
		return data[:read], fmt.Errorf("unexpected EOF: expected %d bytes, got %d", n, read)
	}
	return data, nil
}

// Pos returns the number of bytes consumed so far.
func (l *Lexer) Pos() int64 {
	return l.pos
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
