package formula

import "fmt"

// maxDepth bounds nested negations, parentheses and calls. Together with
// maxFormulaLength it keeps Eval and Dependencies recursion shallow.
const maxDepth = 256

// Parser consumes a token slice and builds an AST. It never evaluates and
// never resolves references.
type Parser struct {
	tokens []Token
	pos    int
	srcLen int
	depth  int
}

// Parse tokenizes and parses src.
func Parse(src string) (Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens, srcLen: len(src)}
	return p.Parse()
}

// ParseTokens parses an already tokenized formula.
func ParseTokens(tokens []Token) (Node, error) {
	end := 0
	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		end = last.Pos + len(last.Text)
	}
	p := &Parser{tokens: tokens, srcLen: end}
	return p.Parse()
}

// Parse parses a full expression and rejects trailing tokens.
func (p *Parser) Parse() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, &SyntaxError{Msg: "empty formula", Pos: 0}
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		if tok.Kind == TokenRParen {
			return nil, &SyntaxError{Msg: "unmatched ')'", Char: ')', Pos: tok.Pos}
		}
		return nil, &SyntaxError{Msg: "unexpected trailing " + tok.Kind.String(), Char: firstRune(tok.Text), Pos: tok.Pos}
	}
	return n, nil
}

// expr := term (('+'|'-') term)*
func (p *Parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.Kind != TokenPlus && tok.Kind != TokenMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if tok.Kind == TokenMinus {
			op = OpSub
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// term := factor (('*'|'/') factor)*
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.Kind != TokenStar && tok.Kind != TokenSlash) {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		op := OpMul
		if tok.Kind == TokenSlash {
			op = OpDiv
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// factor := '-' factor | NUMBER | CODE | CODE '(' args ')' | '(' expr ')'
func (p *Parser) parseFactor() (Node, error) {
	tok, ok := p.next()
	if ok && p.depth >= maxDepth {
		return nil, &SyntaxError{Msg: "formula nested too deeply", Char: firstRune(tok.Text), Pos: tok.Pos}
	}
	p.depth++
	defer func() { p.depth-- }()
	if !ok {
		return nil, &SyntaxError{Msg: "unexpected end of formula", Pos: p.srcLen}
	}

	switch tok.Kind {
	case TokenMinus:
		x, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Neg{X: x}, nil
	case TokenNumber:
		return &Number{Value: tok.Value}, nil
	case TokenCode:
		if next, ok := p.peek(); ok && next.Kind == TokenLParen {
			return p.parseCall(tok)
		}
		return &Ref{Code: tok.Text}, nil
	case TokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.Kind != TokenRParen {
			return nil, &SyntaxError{Msg: "unmatched '('", Char: '(', Pos: tok.Pos}
		}
		return inner, nil
	default:
		return nil, &SyntaxError{Msg: "unexpected " + tok.Kind.String(), Char: firstRune(tok.Text), Pos: tok.Pos}
	}
}

func (p *Parser) parseCall(name Token) (Node, error) {
	fn, ok := builtins[name.Text]
	if !ok {
		return nil, &SyntaxError{Msg: "unknown function " + name.Text, Pos: name.Pos}
	}
	open, _ := p.next()

	var args []Node
	if tok, ok := p.peek(); ok && tok.Kind == TokenRParen {
		p.pos++
	} else {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			sep, ok := p.next()
			if !ok {
				return nil, &SyntaxError{Msg: "unmatched '('", Char: '(', Pos: open.Pos}
			}
			if sep.Kind == TokenRParen {
				break
			}
			if sep.Kind != TokenComma {
				return nil, &SyntaxError{Msg: "expected ',' or ')' in call to " + fn.Name, Char: firstRune(sep.Text), Pos: sep.Pos}
			}
		}
	}

	if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
		return nil, &SyntaxError{Msg: fmt.Sprintf("%s takes %s, got %d", fn.Name, arity(fn), len(args)), Pos: name.Pos}
	}
	return &Call{Func: fn, Args: args}, nil
}

func (p *Parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func arity(fn Func) string {
	switch {
	case fn.MaxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", fn.MinArgs)
	case fn.MinArgs == fn.MaxArgs:
		return fmt.Sprintf("%d argument(s)", fn.MinArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", fn.MinArgs, fn.MaxArgs)
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
