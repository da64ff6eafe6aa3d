package formula

// Dependencies returns the distinct codes referenced by n in first-seen
// order (left to right).
func Dependencies(n Node) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Number:
		case *Ref:
			if _, ok := seen[n.Code]; !ok {
				seen[n.Code] = struct{}{}
				out = append(out, n.Code)
			}
		case *Neg:
			walk(n.X)
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}
