package formula

import (
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize(" REVENUE - COGS_2*(1.5 + .25) ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		kind TokenKind
		text string
		pos  int
	}{
		{TokenCode, "REVENUE", 1},
		{TokenMinus, "-", 9},
		{TokenCode, "COGS_2", 11},
		{TokenStar, "*", 17},
		{TokenLParen, "(", 18},
		{TokenNumber, "1.5", 19},
		{TokenPlus, "+", 23},
		{TokenNumber, ".25", 25},
		{TokenRParen, ")", 28},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Kind != w.kind || tokens[i].Text != w.text || tokens[i].Pos != w.pos {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], w)
		}
	}
	if tokens[7].Value != 0.25 {
		t.Errorf("number value = %v, want 0.25", tokens[7].Value)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantChar rune
		wantPos  int
	}{
		{"lowercase code", "REVENUE + cogs", 'c', 10},
		{"unknown symbol", "A % B", '%', 2},
		{"thousands separator", "1,000", 0, -1}, // comma tokenizes; checked by parser instead
		{"second decimal point", "1.2.3", '.', 3},
		{"trailing decimal point", "1. + A", '.', 1},
		{"non-ascii", "A × B", '×', 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			if tt.wantPos < 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if se.Char != tt.wantChar || se.Pos != tt.wantPos {
				t.Errorf("got char %q pos %d, want %q pos %d", se.Char, se.Pos, tt.wantChar, tt.wantPos)
			}
		})
	}
}
