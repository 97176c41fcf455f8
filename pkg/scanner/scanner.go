// Package scanner implements the lexical analyzer for lumen.
//
// The scanner is stateless over a fixed source buffer plus a cursor and
// a current line counter. It produces tokens lazily, one at a time, on
// demand from the compiler — there is no up-front tokenization pass and
// no token slice ever materializes in full, an on-demand design
// generalized to the bracket-and-semicolon grammar the language
// actually specifies.
package scanner

import (
	"github.com/lumenlang/lumen/pkg/token"
)

// Scanner holds the scanning cursor over a single source buffer.
//
// Fields:
//
//	src:   the full source text, read-only
//	start: byte offset of the token currently being scanned
//	cur:   byte offset of the next unread byte
//	line:  1-based line number of the cursor
type Scanner struct {
	src   string
	start int
	cur   int
	line  int
}

// New creates a scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Scan produces exactly one token: punctuation, an operator (including
// the two-character forms ==, !=, <=, >=), a string literal, a number,
// an identifier/keyword, an error token, or EOF.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespace()
	s.start = s.cur

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
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
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		if s.matchByte('=') {
			return s.make(token.BANGEQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.matchByte('=') {
			return s.make(token.EQEQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.matchByte('=') {
			return s.make(token.LE)
		}
		return s.make(token.LT)
	case '>':
		if s.matchByte('=') {
			return s.make(token.GE)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.cur >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.cur]
	s.cur++
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

func (s *Scanner) matchByte(want byte) bool {
	if s.atEnd() || s.src[s.cur] != want {
		return false
	}
	s.cur++
	return true
}

// skipWhitespace consumes spaces, tabs, carriage returns, newlines
// (tracking the line counter), and "// ... \n" line comments.
func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.cur++
		case '\n':
			s.line++
			s.cur++
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.cur++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// string scans the content between double quotes. A newline inside a
// string is allowed (it continues the string, bumping the line
// counter); reaching EOF before the closing quote yields an error
// token with message "Unterminated string.".
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.cur++
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.cur++ // closing quote
	return s.make(token.STRING)
}

// number scans one or more digits, optionally followed by a '.' and one
// or more digits. A trailing '.' not followed by a digit is not
// consumed (it belongs to a following DOT token, e.g. method calls on
// numeric literals are not supported but this keeps `1.method` parsing
// sane if ever extended).
func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.cur++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.cur++ // consume '.'
		for isDigit(s.peek()) {
			s.cur++
		}
	}
	return s.make(token.NUMBER)
}

// identifier scans a maximal run of alphanumeric/underscore bytes, then
// classifies it as a keyword or a plain identifier.
func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.cur++
	}
	text := s.src[s.start:s.cur]
	if kind, ok := token.Lookup(text); ok {
		return s.make(kind)
	}
	return s.make(token.IDENT)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.src[s.start:s.cur], Line: s.line}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.ERROR, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
