package optimizer

import "github.com/parqlite/qcore/internal/plan"

// OperatorFusion implements spec.md §4.7.8's operator-fusion step:
// two adjacent PROJECTs collapse to the outermost's column list,
// two adjacent DISTINCTs collapse to the outer's column list (the
// inner's dedup has already happened; re-deduping the same or a
// subset of columns is a no-op), and nested LIMITs collapse to
// whichever is most restrictive (the smallest count).
//
// Grounded on the teacher's engine.go, which has a single flat
// pipeline stage with nothing to fuse; new machinery for the
// multi-stage plan shape this optimizer builds.
type OperatorFusion struct{}

func (s *OperatorFusion) Name() string { return "operator_fusion" }

func (s *OperatorFusion) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *OperatorFusion) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return fuseTree(root, st)
}

func fuseTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", fuseTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", fuseTree(r, st))
		}
		return node
	default:
		if input := node.Input(); input != nil {
			node.SetInput(fuseTree(input, st))
		}
	}

	switch node.Type() {
	case plan.NodeProject:
		if inner := node.Input(); inner != nil && inner.Type() == plan.NodeProject {
			bump(st, "adjacent_project_fused")
			return plan.NewProject(inner.Input(), node.Columns())
		}
	case plan.NodeDistinct:
		if inner := node.Input(); inner != nil && inner.Type() == plan.NodeDistinct {
			bump(st, "adjacent_distinct_fused")
			return plan.NewDistinct(inner.Input(), node.Columns())
		}
	case plan.NodeLimit:
		if inner := node.Input(); inner != nil && inner.Type() == plan.NodeLimit {
			bump(st, "nested_limit_fused")
			count := node.Limit()
			if inner.Limit() < count {
				count = inner.Limit()
			}
			return plan.NewLimit(inner.Input(), count)
		}
	}
	return node
}
