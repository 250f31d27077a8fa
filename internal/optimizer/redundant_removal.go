package optimizer

import "github.com/parqlite/qcore/internal/plan"

// RedundantOperatorRemoval implements spec.md §4.7's final cleanup
// step: a no-op PROJECT whose column list exactly matches its input's
// schema, in the same order, is dropped entirely, and a FILTER whose
// predicate folded to the literal TRUE (by an earlier Boolean
// Simplification / Constant Folding pass) is dropped too, since it
// can no longer reject any row.
//
// Grounded on the teacher's engine.go, which has no PROJECT node and
// therefore no no-op projection to ever remove; new machinery for
// this optimizer's plan shape, complementing OperatorFusion (which
// collapses adjacent same-type operators) by removing single
// operators that do nothing in isolation.
type RedundantOperatorRemoval struct{}

func (s *RedundantOperatorRemoval) Name() string { return "redundant_operator_removal" }

func (s *RedundantOperatorRemoval) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *RedundantOperatorRemoval) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return removeRedundant(root, st)
}

func removeRedundant(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", removeRedundant(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", removeRedundant(r, st))
		}
		return node
	default:
		if input := node.Input(); input != nil {
			node.SetInput(removeRedundant(input, st))
		}
	}

	switch node.Type() {
	case plan.NodeProject:
		input := node.Input()
		if input != nil && isNoOpProjection(node.Columns(), outputColumns(input)) {
			bump(st, "noop_project_removed")
			return input
		}
	case plan.NodeFilter:
		if isLiteralBool(node.Predicate(), true) {
			bump(st, "trivially_true_filter_removed")
			return node.Input()
		}
	}
	return node
}

// isNoOpProjection reports whether cols exactly matches inputSchema,
// element for element, meaning the projection selects, renames, and
// reorders nothing.
func isNoOpProjection(cols, inputSchema []string) bool {
	if inputSchema == nil || len(cols) != len(inputSchema) {
		return false
	}
	for i := range cols {
		if cols[i] != inputSchema[i] {
			return false
		}
	}
	return true
}
