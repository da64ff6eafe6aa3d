// Package formula implements the category formula language: a tokenizer,
// a precedence-climbing parser producing a small AST, dependency extraction
// and a tolerant evaluator.
package formula

import (
	"fmt"
	"strconv"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenCode
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
	TokenComma
)

func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "number"
	case TokenCode:
		return "code"
	case TokenPlus:
		return "'+'"
	case TokenMinus:
		return "'-'"
	case TokenStar:
		return "'*'"
	case TokenSlash:
		return "'/'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenComma:
		return "','"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Pos is the byte offset in the source.
type Token struct {
	Kind  TokenKind
	Text  string
	Value float64 // set for TokenNumber
	Pos   int
}

// SyntaxError reports malformed formula text. Char is zero when the error
// is not tied to a single character (e.g. unexpected end of input).
type SyntaxError struct {
	Msg  string
	Char rune
	Pos  int
}

func (e *SyntaxError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("formula syntax error at position %d (%q): %s", e.Pos, e.Char, e.Msg)
	}
	return fmt.Sprintf("formula syntax error at position %d: %s", e.Pos, e.Msg)
}

var singleCharTokens = map[byte]TokenKind{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'(': TokenLParen,
	')': TokenRParen,
	',': TokenComma,
}

// maxFormulaLength is the longest formula source accepted, in bytes.
const maxFormulaLength = 4096

// Tokenize splits src into tokens. Whitespace is skipped; any character
// outside the grammar yields a *SyntaxError.
func Tokenize(src string) ([]Token, error) {
	if len(src) > maxFormulaLength {
		return nil, &SyntaxError{Msg: fmt.Sprintf("formula longer than %d bytes", maxFormulaLength), Pos: maxFormulaLength}
	}
	var tokens []Token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			tok, next, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case isUpper(c):
			start := i
			for i < len(src) && (isUpper(src[i]) || isDigit(src[i]) || src[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenCode, Text: src[start:i], Pos: start})
		default:
			kind, ok := singleCharTokens[c]
			if !ok {
				r := []rune(src[i:])[0]
				return nil, &SyntaxError{Msg: "unrecognized character", Char: r, Pos: i}
			}
			tokens = append(tokens, Token{Kind: kind, Text: string(c), Pos: i})
			i++
		}
	}
	return tokens, nil
}

// scanNumber reads digits with at most one decimal point. A sign is never
// part of the literal.
func scanNumber(src string, start int) (Token, int, error) {
	i := start
	seenDot := false
	digits := 0
	for i < len(src) {
		c := src[i]
		if isDigit(c) {
			digits++
			i++
			continue
		}
		if c == '.' {
			if seenDot {
				return Token{}, 0, &SyntaxError{Msg: "second decimal point in number", Char: '.', Pos: i}
			}
			seenDot = true
			i++
			continue
		}
		break
	}
	text := src[start:i]
	if digits == 0 || text[len(text)-1] == '.' {
		return Token{}, 0, &SyntaxError{Msg: "malformed number", Char: '.', Pos: i - 1}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, 0, &SyntaxError{Msg: "malformed number " + text, Pos: start}
	}
	return Token{Kind: TokenNumber, Text: text, Value: v, Pos: start}, i, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
