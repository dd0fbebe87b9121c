package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser needs one
// when a stream's /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an io.Reader using a Lexer for
// tokenization. It keeps one token of lookahead.
type Parser struct {
	lexer        *Lexer
	currentToken *Token
	peekToken    *Token
	resolver     ReferenceResolver
}

// NewParser creates a parser and primes the current and lookahead tokens.
func NewParser(r io.Reader) *Parser {
	p := &Parser{lexer: NewLexer(r)}
	p.nextToken()
	p.nextToken()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// nextToken shifts the lookahead into the current token. Once the current
// token is the stream keyword no further tokens are read, because what
// follows is binary data for parseStream to consume.
func (p *Parser) nextToken() error {
	p.currentToken = p.peekToken
	if p.atKeyword("stream") {
		p.peekToken = nil
		return nil
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		p.peekToken = nil
		return err
	}
	p.peekToken = token
	return nil
}

func (p *Parser) atKeyword(kw string) bool {
	return p.currentToken != nil &&
		p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == kw
}

func (p *Parser) skipComments() {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		p.nextToken()
	}
}

// ParseObject parses the next object. It returns io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()

	tok := p.currentToken
	if tok == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		var obj Object
		switch string(tok.Value) {
		case "null":
			obj = Null{}
		case "true":
			obj = Bool(true)
		case "false":
			obj = Bool(false)
		default:
			return nil, fmt.Errorf("unexpected keyword: %s", tok.Value)
		}
		p.nextToken()
		return obj, nil

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		p.nextToken()
		return String(tok.Value), nil

	case TokenHexString:
		hexStr := tok.Value
		if len(hexStr)%2 != 0 {
			hexStr = append(hexStr, '0')
		}
		out := make([]byte, len(hexStr)/2)
		for i := range out {
			out[i] = hexValue(hexStr[2*i])<<4 | hexValue(hexStr[2*i+1])
		}
		p.nextToken()
		return String(out), nil

	case TokenName:
		p.nextToken()
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}

	return nil, fmt.Errorf("unexpected token type: %v at position %d", tok.Type, tok.Pos)
}

// parseNumber parses an integer or an indirect reference ("num gen R").
func (p *Parser) parseNumber() (Object, error) {
	first, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number: %s", p.currentToken.Value)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger {
		if second, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64); err == nil {
			// Step onto the generation number; if R follows we have a
			// reference, otherwise the second integer stays current.
			p.nextToken()
			if p.peekToken != nil && p.peekToken.Type == TokenIndirectRef {
				p.nextToken()
				p.nextToken()
				return IndirectRef{Number: int(first), Generation: int(second)}, nil
			}
			return Int(first), nil
		}
	}

	p.nextToken()
	return Int(first), nil
}

// parseArray parses "[obj1 obj2 ...]".
func (p *Parser) parseArray() (Object, error) {
	p.nextToken()

	arr := Array{}
	for {
		p.skipComments()
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		if p.currentToken.Type == TokenArrayEnd {
			p.nextToken()
			return arr, nil
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses "<< /Key value ... >>".
func (p *Parser) parseDict() (Object, error) {
	p.nextToken()

	dict := make(Dict)
	for {
		p.skipComments()
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		}
		if p.currentToken.Type == TokenDictEnd {
			p.nextToken()
			return dict, nil
		}
		if p.currentToken.Type != TokenName {
			return nil, fmt.Errorf("expected name for dictionary key, got %v", p.currentToken.Type)
		}

		key := string(p.currentToken.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "num gen obj <object> endobj", including the
// stream form "num gen obj <dict> stream ... endstream endobj".
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()

	var nums [2]int64
	for i, what := range []string{"object number", "generation number"} {
		if p.currentToken == nil || p.currentToken.Type != TokenInteger {
			return nil, fmt.Errorf("expected %s", what)
		}
		n, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", what, err)
		}
		nums[i] = n
		p.nextToken()
	}

	if !p.atKeyword("obj") {
		return nil, fmt.Errorf("expected 'obj' keyword")
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing indirect object value: %w", err)
	}

	if p.atKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		if obj, err = p.parseStream(dict); err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
	}

	// A missing endobj is tolerated; plenty of writers get it wrong.
	if p.atKeyword("endobj") {
		p.nextToken()
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: int(nums[0]), Generation: int(nums[1])},
		Object: obj,
	}, nil
}

// parseStream reads /Length bytes of data after the stream keyword and
// checks for endstream.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}

	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream data: %w", err)
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read token after stream data: %w", err)
	}
	if token.Type != TokenKeyword || string(token.Value) != "endstream" {
		return nil, fmt.Errorf("expected 'endstream' keyword, got %v (%s)", token.Type, token.Value)
	}

	// Reload current and lookahead past endstream.
	p.currentToken, p.peekToken = nil, nil
	p.nextToken()
	p.nextToken()

	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, error) {
	lengthObj := dict.Get("Length")
	if ref, ok := lengthObj.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect reference for stream length requires a reference resolver")
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve stream length reference: %w", err)
		}
		lengthObj = resolved
	}

	switch v := lengthObj.(type) {
	case nil:
		return 0, fmt.Errorf("stream dictionary missing 'Length' entry")
	case Int:
		if v < 0 {
			return 0, fmt.Errorf("invalid stream length: %d", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid type for stream length: %T", lengthObj)
	}
}
