package formula

import (
	"strconv"
	"strings"
)

// Op is a binary arithmetic operator.
type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
)

func (o Op) String() string { return string(o) }

// Node is a closed set of expression kinds: *Number, *Ref, *Neg, *Binary
// and *Call. Consumers switch over these exhaustively.
type Node interface {
	node()
	String() string
}

type (
	Number struct {
		Value float64
	}

	// Ref references another category by its code.
	Ref struct {
		Code string
	}

	Neg struct {
		X Node
	}

	Binary struct {
		Op    Op
		Left  Node
		Right Node
	}

	// Call invokes a built-in function; arity was checked by the parser.
	Call struct {
		Func Func
		Args []Node
	}
)

func (*Number) node() {}
func (*Ref) node()    {}
func (*Neg) node()    {}
func (*Binary) node() {}
func (*Call) node()   {}

func (n *Number) String() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n *Ref) String() string    { return n.Code }
func (n *Neg) String() string    { return "-" + n.X.String() }

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

// Func describes a built-in function. MaxArgs < 0 means variadic.
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int
}

var builtins = map[string]Func{
	"ABS":   {Name: "ABS", MinArgs: 1, MaxArgs: 1},
	"MIN":   {Name: "MIN", MinArgs: 1, MaxArgs: -1},
	"MAX":   {Name: "MAX", MinArgs: 1, MaxArgs: -1},
	"ROUND": {Name: "ROUND", MinArgs: 1, MaxArgs: 2},
}
