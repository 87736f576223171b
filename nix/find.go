package nix

// Unlimited disables the depth limit of a tree search.
const Unlimited = -1

type searchItem[T any] struct {
	node  T
	depth int
}

// findBFS walks the trees below roots breadth-first. Roots are at depth 0 and
// nodes deeper than maxDepth are not visited unless maxDepth is negative. A
// nil filter accepts every node.
func findBFS[T any](roots []T, children func(T) []T, filter func(T) bool, maxDepth int) []T {
	queue := make([]searchItem[T], 0, len(roots))
	for _, r := range roots {
		queue = append(queue, searchItem[T]{node: r})
	}

	var out []T
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		if filter == nil || filter(it.node) {
			out = append(out, it.node)
		}
		if maxDepth >= 0 && it.depth >= maxDepth {
			continue
		}
		for _, c := range children(it.node) {
			queue = append(queue, searchItem[T]{node: c, depth: it.depth + 1})
		}
	}
	return out
}
