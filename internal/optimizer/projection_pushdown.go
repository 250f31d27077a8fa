package optimizer

import "github.com/parqlite/qcore/internal/plan"

// ProjectionPushdown implements spec.md §4.7's projection-pushdown
// step: a PROJECT sitting above a JOIN is narrowed on each side to
// only the columns that side actually contributes — the columns the
// top projection emits plus whatever the join predicate itself
// references — so a join build/probe phase never carries columns
// nobody downstream will read.
//
// Grounded on the teacher's query package, which has no JOIN node at
// all (its engine.go streams a single CSV source through one filter);
// this strategy is new, added for the multi-relation plan shape the
// teacher's engine never needed to narrow.
type ProjectionPushdown struct{}

func (s *ProjectionPushdown) Name() string { return "projection_pushdown" }

func (s *ProjectionPushdown) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *ProjectionPushdown) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return projectionPushdownTree(root, st)
}

func projectionPushdownTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", projectionPushdownTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", projectionPushdownTree(r, st))
		}
	default:
		if input := node.Input(); input != nil {
			node.SetInput(projectionPushdownTree(input, st))
		}
	}

	if node.Type() == plan.NodeProject && node.Input() != nil && node.Input().Type() == plan.NodeJoin {
		narrowJoinInputs(node, st)
	}
	return node
}

func narrowJoinInputs(project *plan.Node, st *Stats) {
	join := project.Input()
	leftV, _ := join.Get("left")
	rightV, _ := join.Get("right")
	left, _ := leftV.(*plan.Node)
	right, _ := rightV.(*plan.Node)

	needed := append([]string(nil), project.Columns()...)
	needed = append(needed, identifiersIn(join.Predicate())...)

	leftCols := outputColumns(left)
	rightCols := outputColumns(right)
	neededLeft := intersect(needed, leftCols)
	neededRight := intersect(needed, rightCols)

	if len(neededLeft) > 0 && len(neededLeft) < len(leftCols) {
		join.Set("left", plan.NewProject(left, neededLeft))
		bump(st, "projection_pushdown_join_left")
	}
	if len(neededRight) > 0 && len(neededRight) < len(rightCols) {
		join.Set("right", plan.NewProject(right, neededRight))
		bump(st, "projection_pushdown_join_right")
	}
}

func intersect(wanted, available []string) []string {
	if available == nil {
		return nil
	}
	avail := make(map[string]bool, len(available))
	for _, a := range available {
		avail[a] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, w := range wanted {
		if avail[w] && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
