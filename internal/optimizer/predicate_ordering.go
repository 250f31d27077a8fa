package optimizer

import (
	"sort"

	"github.com/parqlite/qcore/internal/plan"
	"github.com/parqlite/qcore/internal/relstats"
)

// PredicateOrdering implements spec.md §4.7.6: within a single FILTER's
// top-level AND, conjuncts are reordered cheapest-first — trivial
// equality/inequality comparisons, then range comparisons, then
// function-call predicates, then subqueries — with ties among
// same-tier comparisons broken by the referenced column's cardinality
// estimate (a more selective column, i.e. one with a smaller
// estimated cardinality relative to the relation's record count,
// sorts earlier since it is expected to reject more rows per
// evaluation).
//
// Grounded on the teacher's engine.go, which evaluates a Condition
// tree's children in the order the query author wrote them with no
// cost-based reordering; this strategy adds the reordering using the
// cardinality estimates internal/relstats already computes.
type PredicateOrdering struct{}

func (s *PredicateOrdering) Name() string { return "predicate_ordering" }

func (s *PredicateOrdering) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

// statsFor returns the source relation statistics stashed on a
// FILTER's "relstats" attribute for use by the tie-breaking
// heuristic, or nil if none are set; callers that have already
// computed statistics for the scanned relation can stash them there
// before running the optimizer.
func statsFor(filter *plan.Node) *relstats.RelationStats {
	v, ok := filter.Get("relstats")
	if !ok {
		return nil
	}
	rs, _ := v.(*relstats.RelationStats)
	return rs
}

func (s *PredicateOrdering) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	var walk func(n *plan.Node)
	walk = func(n *plan.Node) {
		if n == nil {
			return
		}
		if n.Type() == plan.NodeFilter {
			reorderConjuncts(n, st)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return root
}

func reorderConjuncts(filter *plan.Node, st *Stats) {
	pred := filter.Predicate()
	if pred == nil || pred.Type() != plan.NodeAnd {
		return
	}
	kids := flattenChain(pred, plan.NodeAnd)
	if len(kids) < 2 {
		return
	}
	rs := statsFor(filter)
	original := append([]*plan.Node(nil), kids...)

	sort.SliceStable(kids, func(i, j int) bool {
		ti, tj := predicateTier(kids[i]), predicateTier(kids[j])
		if ti != tj {
			return ti < tj
		}
		return selectivity(kids[i], rs) < selectivity(kids[j], rs)
	})

	changed := false
	for i := range kids {
		if kids[i] != original[i] {
			changed = true
			break
		}
	}
	if changed {
		bump(st, "predicate_reordered")
	}
	filter.SetPredicate(plan.NewAnd(kids...))
}

// predicateTier classifies a conjunct into spec.md §4.7.6's four cost
// tiers: 0 trivial, 1 range, 2 function call, 3 subquery.
func predicateTier(n *plan.Node) int {
	switch n.Type() {
	case plan.NodeComparisonOperator:
		op, _ := n.Operator()
		if containsFunctionCall(n.Left()) || containsFunctionCall(n.Right()) {
			return 2
		}
		switch op {
		case plan.OpEq, plan.OpNotEq, plan.OpIn, plan.OpNotIn:
			return 0
		case plan.OpLt, plan.OpLtEq, plan.OpGt, plan.OpGtEq, plan.OpBetween, plan.OpNotBetween:
			return 1
		default:
			return 1
		}
	case plan.NodeFunctionCall:
		return 2
	case plan.NodeNested:
		if sub, ok := n.Get("subquery"); ok {
			if b, ok := sub.(bool); ok && b {
				return 3
			}
		}
		return predicateTier(n.Child())
	default:
		return 1
	}
}

func containsFunctionCall(n *plan.Node) bool {
	return n != nil && n.Type() == plan.NodeFunctionCall
}

// selectivity estimates how restrictive a comparison is using the
// referenced column's cardinality estimate relative to the relation's
// record count — a lower ratio means fewer distinct values and is
// treated as more selective, sorting earlier among same-tier
// conjuncts. Falls back to 0 (no preference) when statistics aren't
// available.
func selectivity(n *plan.Node, rs *relstats.RelationStats) float64 {
	if rs == nil || n.Type() != plan.NodeComparisonOperator {
		return 0
	}
	left := n.Left()
	if left == nil || left.Type() != plan.NodeIdentifier {
		return 0
	}
	name, _ := left.Column()
	col, ok := rs.Columns[name]
	if !ok || rs.RecordCount == 0 {
		return 0
	}
	return float64(col.CardinalityEstimate) / float64(rs.RecordCount)
}
