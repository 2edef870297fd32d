// Package sqltok tokenizes SQL text and groups the tokens into a shallow tree
// of statements, parenthesis groups, function calls and identifiers.
//
// It is not a SQL parser: it only knows enough structure to tell identifiers
// and function calls apart from string literals, quoted names and comments.
package sqltok

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF         TokenType = iota
	TokenWhitespace            // spaces, tabs, newlines
	TokenComment               // -- line or /* block */ comment
	TokenIdent                 // bare identifier or keyword
	TokenQuotedIdent           // "name", `name` or [name]
	TokenString                // 'literal'
	TokenNumber                // 42, 3.14, 1e9, 0x1F
	TokenParam                 // ?, ?1, :name, @name, $1
	TokenLParen                // (
	TokenRParen                // )
	TokenComma                 // ,
	TokenDot                   // .
	TokenSemicolon             // ;
	TokenOperator              // any other punctuation
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenWhitespace:  "whitespace",
	TokenComment:     "comment",
	TokenIdent:       "identifier",
	TokenQuotedIdent: "quoted identifier",
	TokenString:      "string",
	TokenNumber:      "number",
	TokenParam:       "parameter",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenComma:       ",",
	TokenDot:         ".",
	TokenSemicolon:   ";",
	TokenOperator:    "operator",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexed token. Value is the exact source text, so concatenating
// the values of all tokens reproduces the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// End returns the byte offset just past the token.
func (t Token) End() int { return t.Pos + len(t.Value) }

// SyntaxError reports text the lexer or tree builder could not make sense of.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
}

// Lexer tokenizes SQL text.
type Lexer struct {
	input string
	pos   int
	start int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex tokenizes the whole input, excluding the trailing EOF token.
func Lex(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	l.start = l.pos
	ch := l.input[l.pos]

	switch {
	case isSpace(ch):
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.pos++
		}
		return l.emit(TokenWhitespace), nil
	case ch == '-' && l.peek(1) == '-':
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
		return l.emit(TokenComment), nil
	case ch == '/' && l.peek(1) == '*':
		return l.scanBlockComment()
	case ch == '\'':
		return l.scanString()
	case ch == '"' || ch == '`':
		return l.scanQuoted(ch, ch)
	case ch == '[':
		return l.scanQuoted('[', ']')
	case ch == '(':
		l.pos++
		return l.emit(TokenLParen), nil
	case ch == ')':
		l.pos++
		return l.emit(TokenRParen), nil
	case ch == ',':
		l.pos++
		return l.emit(TokenComma), nil
	case ch == ';':
		l.pos++
		return l.emit(TokenSemicolon), nil
	case ch == '.' && !isDigit(l.peek(1)):
		l.pos++
		return l.emit(TokenDot), nil
	case isDigit(ch) || ch == '.':
		return l.scanNumber(), nil
	case ch == '?' || ch == '$' || ((ch == ':' || ch == '@') && isIdentStart(l.peek(1))):
		l.pos++
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		return l.emit(TokenParam), nil
	case isIdentStart(ch) || ch >= utf8.RuneSelf:
		return l.scanIdent(), nil
	default:
		l.pos++
		return l.emit(TokenOperator), nil
	}
}

func (l *Lexer) emit(typ TokenType) Token {
	return Token{Type: typ, Value: l.input[l.start:l.pos], Pos: l.start}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *Lexer) scanIdent() Token {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < utf8.RuneSelf {
			if !isIdentChar(ch) {
				break
			}
			l.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	if l.pos == l.start {
		// Stray non-letter rune; consume it as an operator.
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
		return l.emit(TokenOperator)
	}
	return l.emit(TokenIdent)
}

func (l *Lexer) scanNumber() Token {
	if l.input[l.pos] == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.input) && isHexDigit(l.input[l.pos]) {
			l.pos++
		}
		return l.emit(TokenNumber)
	}

	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isDigit(ch):
			l.pos++
		case ch == '.' && !seenDot:
			seenDot = true
			l.pos++
		case (ch == 'e' || ch == 'E') && (isDigit(l.peek(1)) || ((l.peek(1) == '+' || l.peek(1) == '-') && isDigit(l.peek(2)))):
			l.pos += 2
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
			return l.emit(TokenNumber)
		default:
			return l.emit(TokenNumber)
		}
	}
	return l.emit(TokenNumber)
}

// scanString reads a single-quoted literal. Both the SQL doubled quote ('')
// and a backslash escape (\') keep the literal open.
func (l *Lexer) scanString() (Token, error) {
	l.pos++
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\\':
			l.pos += 2
		case '\'':
			if l.peek(1) == '\'' {
				l.pos += 2
				continue
			}
			l.pos++
			return l.emit(TokenString), nil
		default:
			l.pos++
		}
	}
	return Token{}, &SyntaxError{Pos: l.start, Msg: "unterminated string literal"}
}

func (l *Lexer) scanQuoted(open, closing byte) (Token, error) {
	l.pos++
	for l.pos < len(l.input) {
		if l.input[l.pos] == closing {
			if closing == open && l.peek(1) == closing {
				l.pos += 2
				continue
			}
			l.pos++
			return l.emit(TokenQuotedIdent), nil
		}
		l.pos++
	}
	return Token{}, &SyntaxError{Pos: l.start, Msg: "unterminated quoted identifier"}
}

func (l *Lexer) scanBlockComment() (Token, error) {
	l.pos += 2
	for l.pos+1 < len(l.input) {
		if l.input[l.pos] == '*' && l.input[l.pos+1] == '/' {
			l.pos += 2
			return l.emit(TokenComment), nil
		}
		l.pos++
	}
	return Token{}, &SyntaxError{Pos: l.start, Msg: "unterminated block comment"}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

// UnquoteString returns the contents of a single-quoted literal with doubled
// quotes and backslash-escaped quotes resolved. Other backslashes are kept.
func UnquoteString(lit string) string {
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		lit = lit[1 : len(lit)-1]
	}
	out := make([]byte, 0, len(lit))
	for i := 0; i < len(lit); i++ {
		ch := lit[i]
		switch {
		case ch == '\\' && i+1 < len(lit) && lit[i+1] == '\'':
			out = append(out, lit[i+1])
			i++
		case ch == '\'' && i+1 < len(lit) && lit[i+1] == '\'':
			out = append(out, '\'')
			i++
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
