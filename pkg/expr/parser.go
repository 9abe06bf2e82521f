package expr

import (
	"strconv"
)

// parser is a recursive-descent parser over a token slice. Precedence from
// lowest to highest: ternary, or, and, equality, relational, additive,
// multiplicative, unary, exponent, postfix.
type parser struct {
	tokens []Token
	pos    int
}

func parse(source string) (node, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	if tokens[0].Type == TokenEOF {
		return nil, syntaxError(0, "empty expression")
	}

	p := &parser{tokens: tokens}
	root, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, syntaxError(tok.Pos, "unexpected %s %q", tok.Type, tok.Value)
	}
	return root, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, syntaxError(tok.Pos, "expected %s, found %s", tt, tok.Type)
	}
	return tok, nil
}

// matchOp reports whether the current token is one of the given operators.
// Word operators (and, or, not) arrive as identifiers.
func (p *parser) matchOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.Type != TokenOperator && tok.Type != TokenIdentifier {
		return "", false
	}
	for _, op := range ops {
		if tok.Value == op {
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseConditional() (node, error) {
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != TokenQuestion {
		return test, nil
	}
	p.next()

	consequent, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	alternate, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return &conditionalNode{test: test, consequent: consequent, alternate: alternate}, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("||", "or"); !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "or", left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("&&", "and"); !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "and", left: left, right: right}
	}
}

// left-associative binary levels, lowest first
var binaryLevels = [][]string{
	{"===", "!==", "==", "!="},
	{"<=", ">=", "<", ">"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenOperator {
			return left, nil
		}
		op, ok := p.matchOp(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.matchOp("-", "+", "!", "not"); ok {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parseExponent()
}

func (p *parser) parseExponent() (node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenOperator || tok.Value != "^" {
		return base, nil
	}
	p.next()
	// right-associative, and the exponent may carry its own sign
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: "^", left: base, right: exponent}, nil
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		switch tok.Type {
		case TokenDot:
			p.next()
			name, err := p.expect(TokenIdentifier)
			if err != nil {
				return nil, err
			}
			n = &memberNode{object: n, property: name.Value}

		case TokenLBracket:
			p.next()
			key, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			n = &indexNode{object: n, key: key}

		case TokenLParen:
			ident, ok := n.(*identifierNode)
			if !ok {
				return nil, syntaxError(tok.Pos, "only named functions can be called")
			}
			p.next()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			n = &callNode{name: ident.name, args: args, pos: ident.pos}

		default:
			return n, nil
		}
	}
}

func (p *parser) parseArguments() ([]node, error) {
	var args []node
	if p.peek().Type == TokenRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.next()
		switch tok.Type {
		case TokenComma:
			continue
		case TokenRParen:
			return args, nil
		default:
			return nil, syntaxError(tok.Pos, "expected ',' or ')', found %s", tok.Type)
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()

	switch tok.Type {
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, syntaxError(tok.Pos, "invalid number %q", tok.Value)
		}
		return &literalNode{value: f}, nil

	case TokenString:
		return &literalNode{value: tok.Value}, nil

	case TokenIdentifier:
		switch tok.Value {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		case "null":
			return &literalNode{value: nil}, nil
		case "and", "or":
			return nil, syntaxError(tok.Pos, "unexpected operator %q", tok.Value)
		}
		return &identifierNode{name: tok.Value, pos: tok.Pos}, nil

	case TokenLParen:
		inner, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenEOF:
		return nil, syntaxError(tok.Pos, "unexpected end of expression")
	}

	return nil, syntaxError(tok.Pos, "unexpected %s %q", tok.Type, tok.Value)
}
