package parser

import (
	"strings"
	"unicode"

	"github.com/merchantmoh-debug/ArkLang/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokStr
	tokPunct   // single or double character punctuation and operators
	tokKeyword // func, let, return, if, else, while, struct, true, false
)

var keywords = map[string]bool{
	"func":   true,
	"let":    true,
	"return": true,
	"if":     true,
	"else":   true,
	"while":  true,
	"struct": true,
	"true":   true,
	"false":  true,
}

type token struct {
	Kind tokenKind
	Text string
	Line int
	Col  int
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		// line comments
		if c == '/' && l.peek2() == '/' {
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// next produces the following token. Two character operators are
// folded into a single punct token.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	line, col := l.line, l.col

	if l.pos >= len(l.src) {
		return token{Kind: tokEOF, Line: line, Col: col}, nil
	}

	c := l.peek()

	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peek()) {
			l.advance()
		}
		text := l.src[start:l.pos]
		kind := tokIdent
		if keywords[text] {
			kind = tokKeyword
		}
		return token{Kind: kind, Text: text, Line: line, Col: col}, nil

	case c >= '0' && c <= '9':
		start := l.pos
		for l.pos < len(l.src) && l.peek() >= '0' && l.peek() <= '9' {
			l.advance()
		}
		return token{Kind: tokInt, Text: l.src[start:l.pos], Line: line, Col: col}, nil

	case c == '"':
		l.advance()
		var b strings.Builder
		for {
			if l.pos >= len(l.src) {
				return token{}, errors.Syntax(line, col, "unterminated string literal")
			}
			ch := l.advance()
			if ch == '"' {
				break
			}
			if ch == '\\' {
				if l.pos >= len(l.src) {
					return token{}, errors.Syntax(line, col, "unterminated string literal")
				}
				esc := l.advance()
				switch esc {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				case '"':
					b.WriteByte('"')
				case '\\':
					b.WriteByte('\\')
				default:
					return token{}, errors.Syntax(l.line, l.col, "unknown escape \\"+string(esc))
				}
				continue
			}
			b.WriteByte(ch)
		}
		return token{Kind: tokStr, Text: b.String(), Line: line, Col: col}, nil
	}

	// operators and punctuation
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "->", "==", "!=", "#[":
		l.advance()
		l.advance()
		return token{Kind: tokPunct, Text: two, Line: line, Col: col}, nil
	}

	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '=', '(', ')', '{', '}', '[', ']', ',', ':', ';', '.':
		l.advance()
		return token{Kind: tokPunct, Text: string(c), Line: line, Col: col}, nil
	}

	return token{}, errors.Syntax(line, col, "unexpected character "+string(c))
}

// lex tokenizes the whole source up front.
func lex(src string) ([]token, error) {
	l := newLexer(src)
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == tokEOF {
			return toks, nil
		}
	}
}
