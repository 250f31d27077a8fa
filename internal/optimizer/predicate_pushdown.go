package optimizer

import "github.com/parqlite/qcore/internal/plan"

// PredicatePushdown implements spec.md §4.7.5: a FILTER is relocated
// below a PROJECT when every identifier it references survives the
// projection, into whichever side of an INNER JOIN supplies all
// referenced identifiers, across a LEFT/RIGHT
// JOIN only on the preserved (outer) side, never across a FULL OUTER
// JOIN, and never past an AGGREGATE except when the predicate touches
// only the group keys (in which case it becomes a pre-aggregation
// WHERE).
//
// Grounded on the teacher's engine.go, whose single Condition is
// always evaluated directly over the scanned rows (there is no
// PROJECT/JOIN/AGGREGATE plan shape to push through); this strategy
// is new machinery needed once the flat CSV-row filter grows into a
// full logical plan.
type PredicatePushdown struct{}

func (s *PredicatePushdown) Name() string { return "predicate_pushdown" }

func (s *PredicatePushdown) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *PredicatePushdown) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return pushdownTree(root, st)
}

func pushdownTree(node *plan.Node, st *Stats) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", pushdownTree(l, st))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", pushdownTree(r, st))
		}
	default:
		if input := node.Input(); input != nil {
			node.SetInput(pushdownTree(input, st))
		}
	}

	if node.Type() == plan.NodeFilter {
		return pushFilterDown(node, st)
	}
	return node
}

// pushFilterDown repeatedly relocates filter below its input while a
// pushdown rule applies, stopping once no further relocation is safe.
func pushFilterDown(filter *plan.Node, st *Stats) *plan.Node {
	if IsCorrelated(filter.Predicate()) {
		return filter
	}
	cols := identifiersIn(filter.Predicate())
	input := filter.Input()
	if input == nil {
		return filter
	}

	switch input.Type() {
	case plan.NodeProject:
		if !subsetOf(cols, input.Columns()) {
			return filter
		}
		bump(st, "predicate_pushdown_through_project")
		newFilter := plan.NewFilter(input.Input(), filter.Predicate())
		newProject := plan.NewProject(newFilter, input.Columns())
		return rewrapAfterPush(newProject, newFilter, st)

	case plan.NodeJoin:
		kind := input.JoinKindOf()
		leftV, _ := input.Get("left")
		rightV, _ := input.Get("right")
		left, _ := leftV.(*plan.Node)
		right, _ := rightV.(*plan.Node)
		leftCols := outputColumns(left)
		rightCols := outputColumns(right)

		var pushLeft, pushRight bool
		switch kind {
		case plan.JoinInner, plan.JoinSemi, plan.JoinAnti:
			pushLeft = subsetOf(cols, leftCols)
			pushRight = !pushLeft && subsetOf(cols, rightCols)
		case plan.JoinLeft:
			pushLeft = subsetOf(cols, leftCols)
		case plan.JoinRight:
			pushRight = subsetOf(cols, rightCols)
		case plan.JoinFull:
			// never pushed across a full outer join
		}

		if pushLeft {
			bump(st, "predicate_pushdown_into_join_left")
			input.Set("left", plan.NewFilter(left, filter.Predicate()))
			return input
		}
		if pushRight {
			bump(st, "predicate_pushdown_into_join_right")
			input.Set("right", plan.NewFilter(right, filter.Predicate()))
			return input
		}
		return filter

	case plan.NodeAggregate:
		groupKeys := aggregateGroupKeys(input)
		if !subsetOf(cols, groupKeys) {
			return filter
		}
		bump(st, "predicate_pushdown_through_aggregate")
		newFilter := plan.NewFilter(input.Input(), filter.Predicate())
		newAgg := plan.NewAggregate(newFilter, groupKeys)
		return newAgg

	default:
		return filter
	}
}

// rewrapAfterPush continues trying to push the relocated filter
// further down its new input, then re-wraps it under outer, returning
// the fully rearranged subtree.
func rewrapAfterPush(outer *plan.Node, movedFilter *plan.Node, st *Stats) *plan.Node {
	pushed := pushFilterDown(movedFilter, st)
	outer.SetInput(pushed)
	return outer
}

func aggregateGroupKeys(agg *plan.Node) []string {
	v, _ := agg.Get("group_keys")
	keys, _ := v.([]string)
	return keys
}

// identifiersIn collects every IDENTIFIER column name referenced
// anywhere within expr, including function-call arguments.
func identifiersIn(expr *plan.Node) []string {
	if expr == nil {
		return nil
	}
	var out []string
	var walk func(n *plan.Node)
	walk = func(n *plan.Node) {
		if n == nil {
			return
		}
		if n.Type() == plan.NodeIdentifier {
			if col, ok := n.Column(); ok {
				out = append(out, col)
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(expr)
	return out
}

// outputColumns best-effort resolves the column names produced by a
// plan subtree: a SCAN's explicit "schema" attribute, a PROJECT's
// selected columns, a JOIN's left+right union, or (for single-input
// nodes that don't change the schema) its input's columns. Returns
// nil when the schema can't be determined, in which case callers
// treat the relevant pushdown as unsafe.
func outputColumns(n *plan.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case plan.NodeScan:
		v, _ := n.Get("schema")
		cols, _ := v.([]string)
		return cols
	case plan.NodeProject:
		return n.Columns()
	case plan.NodeJoin:
		leftV, _ := n.Get("left")
		rightV, _ := n.Get("right")
		left, _ := leftV.(*plan.Node)
		right, _ := rightV.(*plan.Node)
		return append(append([]string(nil), outputColumns(left)...), outputColumns(right)...)
	case plan.NodeFilter, plan.NodeLimit, plan.NodeDistinct:
		return outputColumns(n.Input())
	case plan.NodeAggregate:
		return aggregateGroupKeys(n)
	default:
		return nil
	}
}

func subsetOf(needles, haystack []string) bool {
	if len(needles) == 0 {
		return false
	}
	if haystack == nil {
		return false
	}
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}
