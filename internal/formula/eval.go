package formula

import (
	"fmt"
	"math"
)

// Env resolves a category code to its numeric value. Implementations report
// unknown codes through their own warning channel and return 0; a non-nil
// error means the lookup itself failed (e.g. the facts store is down).
type Env interface {
	Value(code string) (float64, error)
}

// EnvFunc adapts a function to Env.
type EnvFunc func(code string) (float64, error)

func (f EnvFunc) Value(code string) (float64, error) { return f(code) }

// Evaluator reduces an AST against an Env. Arithmetic faults never abort
// evaluation: they are reported through Warn and yield 0.
type Evaluator struct {
	Env  Env
	Warn func(msg string)
}

// Eval evaluates n. The returned error is only ever an Env lookup failure.
func (e Evaluator) Eval(n Node) (float64, error) {
	switch n := n.(type) {
	case *Number:
		return n.Value, nil
	case *Ref:
		return e.Env.Value(n.Code)
	case *Neg:
		v, err := e.Eval(n.X)
		return -v, err
	case *Binary:
		return e.evalBinary(n)
	case *Call:
		return e.evalCall(n)
	default:
		return 0, fmt.Errorf("unsupported node %T", n)
	}
}

func (e Evaluator) evalBinary(n *Binary) (float64, error) {
	l, err := e.Eval(n.Left)
	if err != nil {
		return 0, err
	}
	r, err := e.Eval(n.Right)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			e.warn("division by zero in " + n.String())
			return 0, nil
		}
		return l / r, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", n.Op)
	}
}

func (e Evaluator) evalCall(n *Call) (float64, error) {
	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(a)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch n.Func.Name {
	case "ABS":
		return math.Abs(args[0]), nil
	case "MIN":
		out := args[0]
		for _, v := range args[1:] {
			out = math.Min(out, v)
		}
		return out, nil
	case "MAX":
		out := args[0]
		for _, v := range args[1:] {
			out = math.Max(out, v)
		}
		return out, nil
	case "ROUND":
		digits := 0.0
		if len(args) > 1 {
			digits = math.Max(-15, math.Min(15, math.Trunc(args[1])))
		}
		scale := math.Pow(10, digits)
		return math.Round(args[0]*scale) / scale, nil
	default:
		return 0, fmt.Errorf("unsupported function %s", n.Func.Name)
	}
}

func (e Evaluator) warn(msg string) {
	if e.Warn != nil {
		e.Warn(msg)
	}
}
