package routing

import (
	"strconv"
)

type parser struct {
	lex     *lexer
	current token
	eof     bool
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err == errEOF {
		p.eof = true
		p.current = token{}
		return nil
	}

	if err != nil {
		return p.lex.error(err)
	}

	p.current = t
	return nil
}

func (p *parser) expect(id int) error {
	if p.eof || p.current.id != id {
		return p.lex.error(errUnexpectedToken)
	}

	return p.advance()
}

// ParseFilters parses a filter chain in the form of:
//
//	flowId("reuse") -> cfForwardedUrl()
//
// Arguments are double quoted or backtick quoted strings, or numbers. An
// empty or whitespace only expression results in an empty chain.
func ParseFilters(code string) ([]*FilterDef, error) {
	p := &parser{lex: newLexer(code)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var defs []*FilterDef
	for !p.eof {
		if len(defs) > 0 {
			if err := p.expect(arrow); err != nil {
				return nil, err
			}
		}

		f, err := p.filter()
		if err != nil {
			return nil, err
		}

		defs = append(defs, f)
	}

	return defs, nil
}

func (p *parser) filter() (*FilterDef, error) {
	if p.eof || p.current.id != symbol {
		return nil, p.lex.error(errUnexpectedToken)
	}

	f := &FilterDef{Name: p.current.val}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.expect(openparen); err != nil {
		return nil, err
	}

	for !p.eof && p.current.id != closeparen {
		if len(f.Args) > 0 {
			if err := p.expect(comma); err != nil {
				return nil, err
			}
		}

		a, err := p.arg()
		if err != nil {
			return nil, err
		}

		f.Args = append(f.Args, a)
	}

	if err := p.expect(closeparen); err != nil {
		return nil, err
	}

	return f, nil
}

func (p *parser) arg() (interface{}, error) {
	if p.eof {
		return nil, p.lex.error(errUnexpectedToken)
	}

	var a interface{}
	switch p.current.id {
	case stringliteral:
		a = p.current.val
	case number:
		f, err := strconv.ParseFloat(p.current.val, 64)
		if err != nil {
			return nil, p.lex.error(err)
		}

		a = f
	default:
		return nil, p.lex.error(errUnexpectedToken)
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	return a, nil
}
