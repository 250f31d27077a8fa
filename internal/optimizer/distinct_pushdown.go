package optimizer

import "github.com/parqlite/qcore/internal/plan"

// DistinctPushdown implements spec.md §4.7's distinct-pushdown step:
// DISTINCT(PROJECT(input, cols), cols) is rewritten to
// PROJECT(DISTINCT(input, cols), cols) whenever the DISTINCT's
// dedup-key columns are exactly the PROJECT's output columns — the
// projection only selects, it never computes, so a row's value at
// each of those columns is identical whether read before or after
// the projection, making the swap always safe in that exact case
// (the general "distinct key is a subset of project's columns" case
// is not rewritten, since a dropped column could be what made two
// rows distinct).
//
// Grounded on the teacher's engine.go, which has no DISTINCT/PROJECT
// plan nodes at all; new machinery for the plan shape this optimizer
// introduces.
type DistinctPushdown struct{}

func (s *DistinctPushdown) Name() string { return "distinct_pushdown" }

func (s *DistinctPushdown) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *DistinctPushdown) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return distinctPushdownTree(root, st)
}

func distinctPushdownTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", distinctPushdownTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", distinctPushdownTree(r, st))
		}
	default:
		if input := node.Input(); input != nil {
			node.SetInput(distinctPushdownTree(input, st))
		}
	}

	if node.Type() != plan.NodeDistinct {
		return node
	}
	project := node.Input()
	if project == nil || project.Type() != plan.NodeProject {
		return node
	}
	if !sameColumns(node.Columns(), project.Columns()) {
		return node
	}
	bump(st, "distinct_pushdown_through_project")
	newDistinct := plan.NewDistinct(project.Input(), node.Columns())
	return plan.NewProject(newDistinct, project.Columns())
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	aSet := make(map[string]bool, len(a))
	for _, c := range a {
		aSet[c] = true
	}
	for _, c := range b {
		if !aSet[c] {
			return false
		}
	}
	return true
}
