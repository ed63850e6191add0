package scad

// Walk calls fn for n and every node below it, depth first, parents before
// children. Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range children(n) {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree for which match is true.
func Count(n Node, match func(Node) bool) int {
	total := 0
	Walk(n, func(x Node) bool {
		if match(x) {
			total++
		}
		return true
	})
	return total
}

func children(n Node) []Node {
	switch v := n.(type) {
	case Translate:
		return v.Children
	case Rotate:
		return v.Children
	case Union:
		return v.Children
	case Difference:
		return v.Children
	case Comment:
		if v.Node == nil {
			return nil
		}
		return []Node{v.Node}
	default:
		return nil
	}
}
