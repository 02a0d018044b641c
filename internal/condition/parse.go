package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Node kinds for the parsed expression tree.
const (
	nodeAtom = iota
	nodeAnd
	nodeOr
	nodeNot
)

// Atom comparison operators.
const (
	opEq = iota // KEY = VALUE
	opNe        // KEY != VALUE
	opGt        // KEY > NUMBER
	opGe        // KEY >= NUMBER
	opLt        // KEY < NUMBER
	opLe        // KEY <= NUMBER
	opIn        // KEY IN {VALUE, ...}
)

// node is one vertex of the expression tree: an atom or a boolean connective.
// The tree is immutable after Parse.
type node struct {
	kind     int
	op       int      // atom operator, valid when kind == nodeAtom
	key      string   // answer-store key, valid when kind == nodeAtom
	value    string   // right-hand value for eq/ne/comparison atoms
	set      []string // membership set for IN atoms
	children []*node  // operands for AND/OR; single operand for NOT
}

// Expr is a parsed, immutable condition expression. Parse once, evaluate
// many times.
type Expr struct {
	text string
	root *node
}

// Text returns the original expression string.
func (e *Expr) Text() string {
	return e.text
}

// token kinds produced by the lexer.
const (
	tokWord   = iota // bare word: key, value, or keyword
	tokOp            // = != > >= < <=
	tokLBrace        // {
	tokRBrace        // }
	tokComma         // ,
)

type token struct {
	kind int
	text string
}

// lex splits an expression into tokens. Words are runs of characters that
// are not whitespace, braces, commas, or operator characters. Operator
// characters greedily form the two-character operators !=, >=, <=.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '{':
			tokens = append(tokens, token{tokLBrace, "{"})
			i++
		case c == '}':
			tokens = append(tokens, token{tokRBrace, "}"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case c == '=':
			tokens = append(tokens, token{tokOp, "="})
			i++
		case c == '!':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
			}
			tokens = append(tokens, token{tokOp, "!="})
			i += 2
		case c == '>' || c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokOp, string(c) + "="})
				i += 2
			} else {
				tokens = append(tokens, token{tokOp, string(c)})
				i++
			}
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokWord, input[start:i]})
		}
	}
	return tokens, nil
}

// isDelimiter reports whether a byte terminates a bare word.
func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '{', '}', ',', '=', '!', '>', '<':
		return true
	}
	return false
}

// parser is a recursive-descent parser over the token stream.
// Grammar (lowest precedence first):
//
//	expr   := andExpr ( OR andExpr )*
//	andExpr := notExpr ( AND notExpr )*
//	notExpr := [ NOT ] atom
//	atom   := KEY (= | != | > | >= | < | <=) VALUE
//	        | KEY IN { VALUE (, VALUE)* }
//
// AND/OR/NOT/IN are matched case-insensitively; keys and values are
// case-sensitive.
type parser struct {
	tokens []token
	pos    int
}

// Parse parses a condition expression into an immutable expression tree.
// An empty or blank expression is rejected; callers treat empty conditions
// as "always applies" before reaching the parser.
func Parse(input string) (*Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q after expression", p.tokens[p.pos].text)
	}
	return &Expr{text: input, root: root}, nil
}

func (p *parser) parseOr() (*node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []*node{left}
	for p.peekKeyword("OR") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &node{kind: nodeOr, children: children}, nil
}

func (p *parser) parseAnd() (*node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	children := []*node{left}
	for p.peekKeyword("AND") {
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &node{kind: nodeAnd, children: children}, nil
}

func (p *parser) parseNot() (*node, error) {
	if p.peekKeyword("NOT") {
		p.pos++
		// NOT binds to a single atom, not a sub-expression
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeNot, children: []*node{atom}}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (*node, error) {
	key, err := p.expectWord("key")
	if err != nil {
		return nil, err
	}
	if isKeyword(key) {
		return nil, fmt.Errorf("reserved word %q cannot be used as a key", key)
	}

	if p.peekKeyword("IN") {
		p.pos++
		return p.parseMembership(key)
	}

	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokOp {
		return nil, fmt.Errorf("expected operator after key %q", key)
	}
	opText := p.tokens[p.pos].text
	p.pos++

	value, err := p.expectWord("value")
	if err != nil {
		return nil, err
	}

	var op int
	switch opText {
	case "=":
		op = opEq
	case "!=":
		op = opNe
	case ">":
		op = opGt
	case ">=":
		op = opGe
	case "<":
		op = opLt
	case "<=":
		op = opLe
	default:
		return nil, fmt.Errorf("unknown operator %q", opText)
	}
	if op != opEq && op != opNe {
		// Ordering comparisons require a numeric literal
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return nil, fmt.Errorf("comparison %q requires a numeric value, got %q", opText, value)
		}
	}
	return &node{kind: nodeAtom, op: op, key: key, value: value}, nil
}

// parseMembership parses the { VALUE (, VALUE)* } tail of an IN atom.
func (p *parser) parseMembership(key string) (*node, error) {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokLBrace {
		return nil, fmt.Errorf("expected '{' after IN for key %q", key)
	}
	p.pos++

	var set []string
	for {
		value, err := p.expectWord("membership value")
		if err != nil {
			return nil, err
		}
		set = append(set, strings.TrimSpace(value))

		if p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokComma {
			p.pos++
			continue
		}
		break
	}

	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokRBrace {
		return nil, fmt.Errorf("expected '}' to close IN set for key %q", key)
	}
	p.pos++
	return &node{kind: nodeAtom, op: opIn, key: key, set: set}, nil
}

// expectWord consumes the next token, which must be a bare word.
func (p *parser) expectWord(what string) (string, error) {
	if p.pos >= len(p.tokens) {
		return "", fmt.Errorf("expected %s, got end of expression", what)
	}
	tok := p.tokens[p.pos]
	if tok.kind != tokWord {
		return "", fmt.Errorf("expected %s, got %q", what, tok.text)
	}
	p.pos++
	return tok.text, nil
}

// peekKeyword reports whether the next token is the given keyword,
// matched case-insensitively.
func (p *parser) peekKeyword(kw string) bool {
	if p.pos >= len(p.tokens) {
		return false
	}
	tok := p.tokens[p.pos]
	return tok.kind == tokWord && strings.EqualFold(tok.text, kw)
}

// isKeyword reports whether a word is reserved by the grammar.
func isKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "AND", "OR", "NOT", "IN":
		return true
	}
	return false
}
