package core

import (
	"bytes"
	"strings"
	"testing"
)

func collectTokens(t *testing.T, input string) []*Token {
	t.Helper()
	lexer := NewLexer(strings.NewReader(input))
	var tokens []*Token
	for {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error = %v", err)
		}
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func TestLexerTokenTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{"array", "[1 2.5]", []TokenType{TokenArrayStart, TokenInteger, TokenReal, TokenArrayEnd}},
		{"dict", "<</Type /Page>>", []TokenType{TokenDictStart, TokenName, TokenName, TokenDictEnd}},
		{"reference", "3 0 R", []TokenType{TokenInteger, TokenInteger, TokenIndirectRef}},
		{"keywords", "true false null obj", []TokenType{TokenKeyword, TokenKeyword, TokenKeyword, TokenKeyword}},
		{"comment", "% hello\n42", []TokenType{TokenComment, TokenInteger}},
		{"strings", "(abc) <414243>", []TokenType{TokenString, TokenHexString}},
		{"digit operator", "d0", []TokenType{TokenKeyword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := collectTokens(t, tt.input)
			if len(tokens) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d", len(tokens), len(tt.want))
			}
			for i, tok := range tokens {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d type = %v, want %v", i, tok.Type, tt.want[i])
				}
			}
		})
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(hello)", "hello"},
		{"(a (nested) b)", "a (nested) b"},
		{`(line\nbreak)`, "line\nbreak"},
		{`(\(paren\))`, "(paren)"},
		{`(\101\102)`, "AB"},
		{"(con\\\ntinued)", "continued"},
		{`(back\\slash)`, `back\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := collectTokens(t, tt.input)
			if len(tokens) != 1 {
				t.Fatalf("got %d tokens, want 1", len(tokens))
			}
			if got := string(tokens[0].Value); got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLexerNames(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/Type", "Type"},
		{"/A#20B", "A B"},
		{"/F1/F2", "F1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := collectTokens(t, tt.input)
			if got := string(tokens[0].Value); got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input    string
		wantType TokenType
		want     string
	}{
		{"42", TokenInteger, "42"},
		{"-17", TokenInteger, "-17"},
		{"+5", TokenInteger, "+5"},
		{"3.14", TokenReal, "3.14"},
		{".5", TokenReal, ".5"},
		{"-.002", TokenReal, "-.002"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := collectTokens(t, tt.input)
			if tokens[0].Type != tt.wantType {
				t.Errorf("type = %v, want %v", tokens[0].Type, tt.wantType)
			}
			if got := string(tokens[0].Value); got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []string{"(unterminated", "<4G>", "/Bad#ZZ", ">", "\x01"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			lexer := NewLexer(strings.NewReader(input))
			if _, err := lexer.NextToken(); err == nil {
				t.Errorf("NextToken(%q) expected error", input)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := collectTokens(t, "  1 /Name (s)")
	want := []int64{2, 4, 10}
	for i, tok := range tokens {
		if tok.Pos != want[i] {
			t.Errorf("token %d pos = %d, want %d", i, tok.Pos, want[i])
		}
	}
}

func TestLexerSkipStreamEOL(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"LF", "\nDATA"},
		{"CRLF", "\r\nDATA"},
		{"CR", "\rDATA"},
		{"spaces then LF", "  \nDATA"},
		{"no EOL", "DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(strings.NewReader(tt.input))
			if err := lexer.SkipStreamEOL(); err != nil {
				t.Fatalf("SkipStreamEOL() error = %v", err)
			}
			data, err := lexer.ReadBytes(4)
			if err != nil {
				t.Fatalf("ReadBytes() error = %v", err)
			}
			if !bytes.Equal(data, []byte("DATA")) {
				t.Errorf("ReadBytes() = %q, want %q", data, "DATA")
			}
		})
	}
}

func TestLexerReadBytesShort(t *testing.T) {
	lexer := NewLexer(strings.NewReader("abc"))
	data, err := lexer.ReadBytes(10)
	if err == nil {
		t.Fatal("ReadBytes() expected error for short input")
	}
	if string(data) != "abc" {
		t.Errorf("ReadBytes() partial = %q, want %q", data, "abc")
	}
	if lexer.Pos() != 3 {
		t.Errorf("Pos() = %d, want 3", lexer.Pos())
	}
}
