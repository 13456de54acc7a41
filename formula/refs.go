package formula

// References walks a parsed expression tree and returns the distinct cell
// references it touches, in "A1" notation, expanding ranges into their
// member cells. Used to build dependency-graph edges.
func References(n Node) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case CellRefNode:
			s := t.Ref.String()
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		case RangeNode:
			rng := normalizedRange(t.Start, t.End)
			for row := rng.MinRow; row <= rng.MaxRow; row++ {
				for col := rng.MinCol; col <= rng.MaxCol; col++ {
					s := CellRef{Col: col, Row: row}.String()
					if _, ok := seen[s]; !ok {
						seen[s] = struct{}{}
						out = append(out, s)
					}
				}
			}
		case BinaryOpNode:
			walk(t.Left)
			walk(t.Right)
		case FunctionCallNode:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return out
}
