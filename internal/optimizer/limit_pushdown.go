package optimizer

import "github.com/parqlite/qcore/internal/plan"

// LimitPushdown implements spec.md §4.7's limit-pushdown step:
// LIMIT(PROJECT(input, cols), n) commutes to
// PROJECT(LIMIT(input, n), cols) unconditionally — a projection
// neither adds nor removes rows nor reorders them, so capping before
// or after it yields the same n rows. LIMIT is never pushed through
// FILTER, JOIN, DISTINCT, or AGGREGATE, since each of those can change
// which or how many rows reach the limit.
//
// Grounded on the teacher's engine.go, which has no LIMIT/PROJECT
// plan nodes at all; new machinery for this optimizer's plan shape.
type LimitPushdown struct{}

func (s *LimitPushdown) Name() string { return "limit_pushdown" }

func (s *LimitPushdown) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *LimitPushdown) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return limitPushdownTree(root, st)
}

func limitPushdownTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", limitPushdownTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", limitPushdownTree(r, st))
		}
	default:
		if input := node.Input(); input != nil {
			node.SetInput(limitPushdownTree(input, st))
		}
	}

	if node.Type() != plan.NodeLimit {
		return node
	}
	project := node.Input()
	if project == nil || project.Type() != plan.NodeProject {
		return node
	}
	bump(st, "limit_pushdown_through_project")
	newLimit := plan.NewLimit(project.Input(), node.Limit())
	return plan.NewProject(newLimit, project.Columns())
}
