package formula

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/model"
)

// ParseError reports where a formula stopped making sense.
type ParseError struct {
	Pos     int    // Byte offset into the formula
	Message string // What was expected
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("formula parse error at offset %d: %s", e.Pos, e.Message)
}

// Parse converts a formula produced by Compiler back into a predicate.
//
// Date clauses parse to DateEquals (never DateEqualsToday) and string
// literals always parse to model.String, so
// Compile(Parse(f)) == f for every f that Compile emits.
func Parse(formula string) (filterir.Predicate, error) {
	p := &parser{lex: lexer{src: formula}}
	p.advance()

	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s after end of expression", p.tok)
	}
	return pred, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokField
	tokString
	tokNumber
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokEquals
	tokGreater
)

type token struct {
	kind tokenKind
	text string // decoded payload for fields, strings, numbers, identifiers
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokField:
		return "field {" + t.text + "}"
	case tokString:
		return "string " + strconv.Quote(t.text)
	default:
		return strconv.Quote(t.text)
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '{':
		end := strings.IndexByte(l.src[l.pos+1:], '}')
		if end < 0 {
			return token{}, &ParseError{Pos: start, Message: "unterminated field reference"}
		}
		name := l.src[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return token{kind: tokField, text: name, pos: start}, nil
	case c == '\'' || c == '"':
		return l.lexString(c)
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == '=':
		l.pos++
		return token{kind: tokEquals, text: "=", pos: start}, nil
	case c == '>':
		l.pos++
		return token{kind: tokGreater, text: ">", pos: start}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		l.pos++
		for l.pos < len(l.src) && (l.src[l.pos] == '.' || (l.src[l.pos] >= '0' && l.src[l.pos] <= '9')) {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
	case c == '_' || unicode.IsLetter(rune(c)):
		for l.pos < len(l.src) && (l.src[l.pos] == '_' || unicode.IsLetter(rune(l.src[l.pos])) || unicode.IsDigit(rune(l.src[l.pos]))) {
			l.pos++
		}
		return token{kind: tokIdent, text: strings.ToUpper(l.src[start:l.pos]), pos: start}, nil
	default:
		return token{}, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected character %q", c)}
	}
}

// lexString scans a quoted literal, honouring backslash escapes.
func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case quote:
			raw := l.src[start+1 : l.pos]
			l.pos++
			return token{kind: tokString, text: unescape(raw), pos: start}, nil
		default:
			l.pos++
		}
	}
	return token{}, &ParseError{Pos: start, Message: "unterminated string literal"}
}

type parser struct {
	lex lexer
	tok token
	err error
}

func (p *parser) advance() {
	if p.err != nil {
		return
	}
	tok, err := p.lex.next()
	if err != nil {
		p.err = err
		p.tok = token{kind: tokEOF, pos: p.lex.pos}
		return
	}
	p.tok = tok
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return &ParseError{Pos: p.tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errorf("expected %s, found %s", what, p.tok)
	}
	tok := p.tok
	p.advance()
	return tok, p.err
}

func (p *parser) parsePredicate() (filterir.Predicate, error) {
	if p.err != nil {
		return nil, p.err
	}
	switch p.tok.kind {
	case tokField:
		return p.parseComparison()
	case tokIdent:
		return p.parseCall()
	default:
		return nil, p.errorf("expected field reference or function, found %s", p.tok)
	}
}

// parseComparison handles {Field} = literal.
func (p *parser) parseComparison() (filterir.Predicate, error) {
	field, err := p.expect(tokField, "field reference")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEquals, "'='"); err != nil {
		return nil, err
	}

	switch p.tok.kind {
	case tokString:
		lit := p.tok.text
		p.advance()
		return filterir.Equals{Field: field.text, Value: model.String(lit)}, p.err
	case tokNumber:
		f, convErr := strconv.ParseFloat(p.tok.text, 64)
		if convErr != nil {
			return nil, p.errorf("invalid number %s", p.tok)
		}
		p.advance()
		return filterir.Equals{Field: field.text, Value: model.Number(f)}, p.err
	case tokIdent:
		var b bool
		switch p.tok.text {
		case "TRUE":
			b = true
		case "FALSE":
		default:
			return nil, p.errorf("expected TRUE() or FALSE(), found %s", p.tok)
		}
		p.advance()
		if err := p.emptyArgs(); err != nil {
			return nil, err
		}
		return filterir.Equals{Field: field.text, Value: model.Bool(b)}, nil
	default:
		return nil, p.errorf("expected literal, found %s", p.tok)
	}
}

func (p *parser) emptyArgs() error {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return err
	}
	_, err := p.expect(tokRParen, "')'")
	return err
}

func (p *parser) parseCall() (filterir.Predicate, error) {
	name := p.tok
	p.advance()
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}

	switch name.text {
	case "AND", "OR":
		preds, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if name.text == "AND" {
			return filterir.And{Predicates: preds}, nil
		}
		return filterir.Or{Predicates: preds}, nil
	case "NOT":
		inner, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return filterir.Not{Predicate: inner}, nil
	case "FIND":
		return p.parseFind()
	case "IS_SAME":
		return p.parseIsSame()
	default:
		return nil, &ParseError{Pos: name.pos, Message: fmt.Sprintf("unsupported function %s", name.text)}
	}
}

// parseArgs parses a comma-separated predicate list and the closing paren.
func (p *parser) parseArgs() ([]filterir.Predicate, error) {
	var preds []filterir.Predicate
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
		if p.tok.kind == tokComma {
			p.advance()
			continue
		}
		if _, err := p.expect(tokRParen, "',' or ')'"); err != nil {
			return nil, err
		}
		return preds, nil
	}
}

// parseFind handles FIND('lit', {F}) > 0 and
// FIND('lit', ARRAYJOIN({F}, ',')) > 0.
func (p *parser) parseFind() (filterir.Predicate, error) {
	lit, err := p.expect(tokString, "string literal")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return nil, err
	}

	var pred filterir.Predicate
	switch {
	case p.tok.kind == tokField:
		pred = filterir.Contains{Field: p.tok.text, Literal: lit.text}
		p.advance()
	case p.tok.kind == tokIdent && p.tok.text == "ARRAYJOIN":
		p.advance()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		field, err := p.expect(tokField, "field reference")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		sep, err := p.expect(tokString, "separator literal")
		if err != nil {
			return nil, err
		}
		if sep.text != "," {
			return nil, &ParseError{Pos: sep.pos, Message: fmt.Sprintf("unsupported ARRAYJOIN separator %q", sep.text)}
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		pred = filterir.ArrayContains{Field: field.text, Literal: lit.text}
	default:
		return nil, p.errorf("expected field reference or ARRAYJOIN, found %s", p.tok)
	}

	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokGreater, "'>'"); err != nil {
		return nil, err
	}
	zero, err := p.expect(tokNumber, "0")
	if err != nil {
		return nil, err
	}
	if zero.text != "0" {
		return nil, &ParseError{Pos: zero.pos, Message: "FIND comparison must be '> 0'"}
	}
	return pred, nil
}

// parseIsSame handles IS_SAME({F}, 'YYYY-MM-DD', 'day').
func (p *parser) parseIsSame() (filterir.Predicate, error) {
	field, err := p.expect(tokField, "field reference")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return nil, err
	}
	dateTok, err := p.expect(tokString, "date literal")
	if err != nil {
		return nil, err
	}
	date, convErr := time.Parse(model.DateLayout, dateTok.text)
	if convErr != nil {
		return nil, &ParseError{Pos: dateTok.pos, Message: fmt.Sprintf("invalid date %q", dateTok.text)}
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return nil, err
	}
	unit, err := p.expect(tokString, "unit literal")
	if err != nil {
		return nil, err
	}
	if unit.text != "day" {
		return nil, &ParseError{Pos: unit.pos, Message: fmt.Sprintf("unsupported IS_SAME unit %q", unit.text)}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return filterir.DateEquals{Field: field.text, Date: date}, nil
}
