// Package scanner tokenizes Lox source text for the compiler. It never
// aborts on a lexical fault: an unterminated string or an unrecognized
// character simply produces an ILLEGAL token carrying the diagnostic as its
// lexeme, and the caller (the compiler's parser) decides how to report it.
package scanner

import (
	"fmt"

	"github.com/mna/loxvm/lang/token"
)

// Scanner turns a source buffer into a stream of Tokens, one per call to
// Scan.
type Scanner struct {
	src  string
	start int // start offset of the token currently being scanned
	cur   int // offset of the next unread byte
	line  int
	col   int // column of src[start]
	curCol int // column of src[cur]
}

// New returns a Scanner positioned at the beginning of src.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1, col: 1, curCol: 1}
}

// Scan returns the next token in the source. Once EOF is produced, every
// subsequent call keeps returning EOF.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespaceAndComments()

	s.start = s.cur
	s.col = s.curCol
	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ';':
		return s.make(token.SEMICOLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '/':
		if s.match('*') {
			return s.errorf("block comments are not supported")
		}
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQUAL)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQUAL_EQUAL)
		}
		return s.make(token.EQUAL)
	case '<':
		if s.match('=') {
			return s.make(token.LESS_EQUAL)
		}
		return s.make(token.LESS)
	case '>':
		if s.match('=') {
			return s.make(token.GREATER_EQUAL)
		}
		return s.make(token.GREATER)
	case '"':
		return s.string()
	}

	return s.errorf("unexpected character '%c'", c)
}

func (s *Scanner) atEnd() bool { return s.cur >= len(s.src) }

// advance consumes and returns the current byte, tracking line and column.
func (s *Scanner) advance() byte {
	c := s.src[s.cur]
	s.cur++
	if c == '\n' {
		s.line++
		s.curCol = 1
	} else {
		s.curCol++
	}
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.cur]
}

func (s *Scanner) peekNext() byte {
	if s.cur+1 >= len(s.src) {
		return 0
	}
	return s.src[s.cur+1]
}

func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.cur] != want {
		return false
	}
	s.advance()
	return true
}

// skipWhitespaceAndComments is the one place "//" line comments are
// recognized. Block comments ("/*") are deliberately not skipped here: a
// "/*" falls through to the main scan switch, which returns it as an
// ILLEGAL token, so source containing one always fails to compile.
func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t', '\n':
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := s.src[s.start:s.cur]
	return s.make(token.Lookup(lexeme))
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

// string scans a double-quoted string literal. Strings may span multiple
// lines and have no escape processing, matching spec §4.1.
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		s.advance()
	}
	if s.atEnd() {
		return s.errorf("unterminated string")
	}
	s.advance() // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: s.src[s.start:s.cur],
		Pos:    token.MakePos(s.line, s.col),
	}
}

func (s *Scanner) errorf(format string, args ...any) token.Token {
	return token.Token{
		Kind:   token.ILLEGAL,
		Lexeme: fmt.Sprintf(format, args...),
		Pos:    token.MakePos(s.line, s.col),
	}
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
