package expr

import (
	"strings"
)

// TokenType represents expression token type
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenIdentifier
	TokenOperator
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenDot
	TokenComma
	TokenQuestion
	TokenColon
)

// String returns a readable token type name used in syntax errors
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of expression"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenIdentifier:
		return "identifier"
	case TokenOperator:
		return "operator"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenDot:
		return "'.'"
	case TokenComma:
		return "','"
	case TokenQuestion:
		return "'?'"
	case TokenColon:
		return "':'"
	default:
		return "unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// longest first so "===" wins over "=="
var multiCharOperators = []string{"===", "!==", "==", "!=", "<=", ">=", "&&", "||"}

var punctuation = map[byte]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	'?': TokenQuestion,
	':': TokenColon,
}

// tokenize splits an expression into tokens, always terminated by TokenEOF
func tokenize(input string) ([]Token, error) {
	tokens := make([]Token, 0, len(input)/2+1)
	i := 0

	for i < len(input) {
		c := input[i]

		switch {
		case isWhitespace(c):
			i++

		case isDigit(c) || (c == '.' && i+1 < len(input) && isDigit(input[i+1])):
			end := scanNumber(input, i)
			tokens = append(tokens, Token{Type: TokenNumber, Value: input[i:end], Pos: i})
			i = end

		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Type: TokenIdentifier, Value: input[start:i], Pos: start})

		case c == '"' || c == '\'':
			value, end, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokenString, Value: value, Pos: i})
			i = end

		case c == '.':
			tokens = append(tokens, Token{Type: TokenDot, Value: ".", Pos: i})
			i++

		default:
			if tt, ok := punctuation[c]; ok {
				tokens = append(tokens, Token{Type: tt, Value: string(c), Pos: i})
				i++
				continue
			}

			op := matchOperator(input, i)
			if op == "" {
				return nil, syntaxError(i, "unexpected character %q", c)
			}
			tokens = append(tokens, Token{Type: TokenOperator, Value: op, Pos: i})
			i += len(op)
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: len(input)})
	return tokens, nil
}

func scanNumber(input string, i int) int {
	for i < len(input) && isDigit(input[i]) {
		i++
	}
	if i+1 < len(input) && input[i] == '.' && isDigit(input[i+1]) {
		i++
		for i < len(input) && isDigit(input[i]) {
			i++
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && isDigit(input[j]) {
			i = j
			for i < len(input) && isDigit(input[i]) {
				i++
			}
		}
	}
	return i
}

func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	var sb strings.Builder

	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if c == quote {
			return sb.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(input) {
			i++
			switch input[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(input[i])
			}
			continue
		}
		sb.WriteByte(c)
	}

	return "", 0, syntaxError(start, "unterminated string literal")
}

func matchOperator(input string, i int) string {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(input[i:], op) {
			return op
		}
	}
	if strings.ContainsRune("+-*/%^<>!", rune(input[i])) {
		return input[i : i+1]
	}
	return ""
}

// isWhitespace returns true if the given character is whitespace
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isDigit returns true if the given character is a digit
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
