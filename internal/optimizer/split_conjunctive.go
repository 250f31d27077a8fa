package optimizer

import "github.com/parqlite/qcore/internal/plan"

// SplitConjunctivePredicates implements spec.md §4.7's split step: a
// single FILTER whose predicate is a top-level AND of N conjuncts is
// replaced by a stack of N single-conjunct FILTER nodes, so later
// pushdown strategies can relocate each conjunct independently instead
// of being blocked by its AND-mates.
//
// Grounded on the teacher's engine.go, which evaluates one Condition
// tree per scan with no per-conjunct relocation at all; splitting is
// new machinery this optimizer needs that the teacher's single-pass
// evaluator never required.
type SplitConjunctivePredicates struct{}

func (s *SplitConjunctivePredicates) Name() string { return "split_conjunctive_predicates" }

func (s *SplitConjunctivePredicates) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *SplitConjunctivePredicates) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return splitTree(root, st)
}

func splitTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	if node.Type() == plan.NodeFilter {
		input := splitTree(node.Input(), st)
		conjuncts := flattenChain(node.Predicate(), plan.NodeAnd)
		if len(conjuncts) <= 1 {
			node.SetInput(input)
			return node
		}
		bump(st, "conjunct_split")
		current := input
		for _, c := range conjuncts {
			current = plan.NewFilter(current, c)
		}
		return current
	}

	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", splitTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", splitTree(r, st))
		}
	default:
		if input := node.Input(); input != nil {
			node.SetInput(splitTree(input, st))
		}
	}
	return node
}
