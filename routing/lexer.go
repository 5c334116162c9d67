package routing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	arrow = iota + 1
	closeparen
	comma
	openparen
	number
	stringliteral
	symbol
)

type token struct {
	id  int
	val string
}

type charPredicate func(byte) bool

type scanner interface {
	scan(string) (token, string, error)
}

type scannerFunc func(string) (token, string, error)

func (sf scannerFunc) scan(code string) (token, string, error) { return sf(code) }

type fixedScanner string

type lexer struct {
	code          string
	lastToken     *token
	initialLength int
}

const (
	escapeChar  = '\\'
	decimalChar = '.'
	underscore  = '_'
)

var (
	errInvalidCharacter = errors.New("invalid character")
	errIncompleteToken  = errors.New("incomplete token")
	errUnexpectedToken  = errors.New("unexpected token")
	errEOF              = errors.New("eof")
)

var fixedTokens = map[fixedScanner]int{
	"->": arrow,
	")":  closeparen,
	",":  comma,
	"(":  openparen,
}

func (t token) String() string { return t.val }

func (fs fixedScanner) scan(code string) (t token, rest string, err error) {
	if len(code) < len(fs) {
		err = errUnexpectedToken
		return
	}

	t.id = fixedTokens[fs]
	t.val = string(fs)
	rest = code[len(fs):]
	return
}

func newLexer(code string) *lexer {
	return &lexer{
		code:          code,
		initialLength: len(code),
	}
}

func isWhitespace(c byte) bool  { return unicode.IsSpace(rune(c)) }
func isUnderscore(c byte) bool  { return c == underscore }
func isAlpha(c byte) bool       { return unicode.IsLetter(rune(c)) }
func isDigit(c byte) bool       { return unicode.IsDigit(rune(c)) }
func isSymbolChar(c byte) bool  { return isUnderscore(c) || isAlpha(c) || isDigit(c) }
func isDecimalChar(c byte) bool { return c == decimalChar }
func isNumberChar(c byte) bool  { return isDecimalChar(c) || isDigit(c) }

func scanWhile(code string, p charPredicate) ([]byte, string) {
	var b []byte
	for len(code) > 0 && p(code[0]) {
		b = append(b, code[0])
		code = code[1:]
	}

	return b, code
}

func scanEscaped(delimiter byte, code string) ([]byte, string) {
	var b []byte
	escaped := false
	for len(code) > 0 {
		c := code[0]
		isDelimiter := c == delimiter
		isEscapeChar := c == escapeChar

		if escaped {
			if !isDelimiter && !isEscapeChar {
				b = append(b, escapeChar)
			}

			b = append(b, c)
			escaped = false
		} else {
			if isDelimiter {
				return b, code
			}

			if isEscapeChar {
				escaped = true
			} else {
				b = append(b, c)
			}
		}

		code = code[1:]
	}

	return b, code
}

func scanStringLiteral(delimiter byte, code string) (t token, rest string, err error) {
	b, rest := scanEscaped(delimiter, code[1:])
	if len(rest) == 0 {
		err = errIncompleteToken
		return
	}

	rest = rest[1:]
	t.id = stringliteral
	t.val = string(b)
	return
}

func scanDoubleQuote(code string) (token, string, error) { return scanStringLiteral('"', code) }
func scanBacktick(code string) (token, string, error)    { return scanStringLiteral('`', code) }

func scanNumber(code string) (t token, rest string, err error) {
	decimal := false
	b, rest := scanWhile(code, func(c byte) bool {
		if isDecimalChar(c) {
			if decimal {
				return false
			}

			decimal = true
			return true
		}

		return isDigit(c)
	})

	if isDecimalChar(b[len(b)-1]) {
		err = errIncompleteToken
		return
	}

	t.id = number
	t.val = string(b)
	return
}

func scanSymbol(code string) (t token, rest string, err error) {
	b, rest := scanWhile(code, isSymbolChar)
	t.id = symbol
	t.val = string(b)
	return
}

func selectFixed(code string) scanner {
	for fixed := range fixedTokens {
		if strings.HasPrefix(code, string(fixed)) {
			return fixed
		}
	}

	return nil
}

func selectVaryingScanner(code string) scanner {
	switch {
	case code[0] == '"':
		return scannerFunc(scanDoubleQuote)
	case code[0] == '`':
		return scannerFunc(scanBacktick)
	case isNumberChar(code[0]):
		return scannerFunc(scanNumber)
	case isAlpha(code[0]) || isUnderscore(code[0]):
		return scannerFunc(scanSymbol)
	default:
		return nil
	}
}

func selectScanner(code string) scanner {
	if s := selectFixed(code); s != nil {
		return s
	}

	return selectVaryingScanner(code)
}

func (l *lexer) next() (t token, err error) {
	_, l.code = scanWhile(l.code, isWhitespace)
	if len(l.code) == 0 {
		err = errEOF
		return
	}

	s := selectScanner(l.code)
	if s == nil {
		err = errInvalidCharacter
		return
	}

	t, l.code, err = s.scan(l.code)
	if err == nil {
		l.lastToken = &t
	}

	return
}

func (l *lexer) error(err error) error {
	return fmt.Errorf(
		"parse failed after token %v, position %d: %w",
		l.lastToken, l.initialLength-len(l.code), err)
}
