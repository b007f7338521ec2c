package forwarded

import "strings"

// Pairs holds the token=value pairs of one hop. Tokens are unique within a
// hop; a repeated token keeps the last value.
type Pairs map[string]string

type state int

const (
	stateToken state = iota
	stateValue
	stateQuoted
	stateQuotedEscaping
)

// Parser is a single pass scanner over a Forwarded header value. It splits
// the value into hops on ',' and pairs on ';', and unquotes quoted-string
// values (RFC 7230 section 3.2.6).
//
// A Parser may be reused but not shared between goroutines.
type Parser struct {
	state  state
	token  strings.Builder
	value  strings.Builder
	quoted strings.Builder
	pairs  Pairs
	hops   []Pairs
}

// NewParser returns a ready to use parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParsePairs splits header into one Pairs per hop using a fresh Parser.
func ParsePairs(header string) []Pairs {
	return NewParser().Parse(header)
}

// Parse scans header and returns the pairs of every hop in order of
// appearance. An empty header yields no hops; every ',' closes a hop even if
// it holds no pairs, so ",," yields two empty hops.
func (p *Parser) Parse(header string) []Pairs {
	p.reset()

	for _, c := range header {
		switch p.state {
		case stateToken:
			switch {
			case c == '=':
				p.state = stateValue
			case c == ',' && isBlank(&p.token):
				p.saveHop()
			case c == ';' && isBlank(&p.token):
				// empty pair, nothing to save
			default:
				p.token.WriteRune(c)
			}
		case stateValue:
			switch {
			case c == '"' && p.quoted.Len() == 0 && isBlank(&p.value):
				p.state = stateQuoted
			case c == ';':
				p.savePair()
			case c == ',':
				if p.token.Len() > 0 {
					p.savePair()
				}
				p.saveHop()
			default:
				p.value.WriteRune(c)
			}
		case stateQuoted:
			switch c {
			case '"':
				p.state = stateValue
			case '\\':
				p.state = stateQuotedEscaping
			default:
				p.quoted.WriteRune(c)
			}
		case stateQuotedEscaping:
			p.quoted.WriteRune(c)
			p.state = stateQuoted
		}
	}

	if !isBlank(&p.token) {
		p.savePair()
	}
	if len(p.pairs) > 0 {
		p.hops = append(p.hops, p.pairs)
	}

	hops := p.hops
	p.hops = nil
	p.pairs = nil
	return hops
}

func (p *Parser) reset() {
	p.resetPair()
	p.pairs = Pairs{}
	p.hops = nil
}

func (p *Parser) resetPair() {
	p.state = stateToken
	p.token.Reset()
	p.value.Reset()
	p.quoted.Reset()
}

// savePair stores the pending token and value, both trimmed, and starts a
// new token.
func (p *Parser) savePair() {
	token := strings.TrimSpace(p.token.String())
	value := strings.TrimSpace(p.value.String() + p.quoted.String())
	p.pairs[token] = value
	p.resetPair()
}

func isBlank(b *strings.Builder) bool {
	return b.Len() == 0 || strings.TrimSpace(b.String()) == ""
}

func (p *Parser) saveHop() {
	p.hops = append(p.hops, p.pairs)
	p.pairs = Pairs{}
	p.resetPair()
}
