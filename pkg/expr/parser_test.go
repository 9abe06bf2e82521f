package expr

import (
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens, err := tokenize(`columns.profit >= 1.5e3 && name !== "a\"b"`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []struct {
		typ   TokenType
		value string
	}{
		{TokenIdentifier, "columns"},
		{TokenDot, "."},
		{TokenIdentifier, "profit"},
		{TokenOperator, ">="},
		{TokenNumber, "1.5e3"},
		{TokenOperator, "&&"},
		{TokenIdentifier, "name"},
		{TokenOperator, "!=="},
		{TokenString, `a"b`},
		{TokenEOF, ""},
	}

	if len(tokens) != len(want) {
		t.Fatalf("Expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Value != w.value {
			t.Errorf("Token %d: expected %s %q, got %s %q", i, w.typ, w.value, tokens[i].Type, tokens[i].Value)
		}
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantPos int
	}{
		{name: "empty", input: "", wantPos: 0},
		{name: "whitespace only", input: "   ", wantPos: 0},
		{name: "dangling operator", input: "1 +", wantPos: 3},
		{name: "unclosed paren", input: "(1", wantPos: 2},
		{name: "incomplete ternary", input: "a ? b", wantPos: 5},
		{name: "unterminated string", input: "'abc", wantPos: 0},
		{name: "unknown character", input: "1 # 2", wantPos: 2},
		{name: "trailing token", input: "1 2", wantPos: 2},
		{name: "double dot", input: "a..b", wantPos: 2},
		{name: "call on member", input: "a.b(1)", wantPos: 3},
		{name: "missing comma", input: "max(1 2)", wantPos: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Expected syntax error for %q", tt.input)
			}
			if !IsSyntaxError(err) {
				t.Fatalf("Expected syntax error, got %v", err)
			}
			var exprErr *Error
			if !errors.As(err, &exprErr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if exprErr.Pos != tt.wantPos {
				t.Errorf("Expected position %d, got %d (%v)", tt.wantPos, exprErr.Pos, err)
			}
		})
	}
}

func TestParse_ValidExpressions(t *testing.T) {
	inputs := []string{
		"item.high - item.low",
		"round((item.high * 0.98 - item.low) / item.low * 100, 2)",
		"columns.profit > 0 ? columns.profit * item.limit : 0",
		"not item.members and item.volume >= 1000",
		"rawData.history[0]",
		"-2 ^ -1",
		"sma(rawData.history, 7)",
		"max()",
	}

	for _, input := range inputs {
		if err := Validate(input); err != nil {
			t.Errorf("Validate(%q) returned error: %v", input, err)
		}
	}
}

func TestExpression_Members(t *testing.T) {
	e, err := Parse("columns.b + columns.a * columns.b + item.c + columns['d']")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := e.Members("columns")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}

	if items := e.Members("item"); len(items) != 1 || items[0] != "c" {
		t.Errorf("Expected [c], got %v", items)
	}
}
