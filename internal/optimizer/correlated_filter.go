package optimizer

import "github.com/parqlite/qcore/internal/plan"

// CorrelatedFilterHandling implements spec.md §4.7's correlated-filter
// step: a FILTER predicate referencing an identifier that belongs to
// an outer query (marked via the "outer_ref" attribute on an
// IDENTIFIER node, set when the plan is constructed from a correlated
// subquery) cannot be freely relocated by later pushdown strategies.
// This pass tags each conjunct that references such an identifier
// with a "correlated" attribute and rebuilds the AND; it does not
// split the FILTER itself. Predicate Pushdown leaves a FILTER whose
// predicate carries the tag in place.
//
// Grounded on the teacher's engine.go, which has no subquery concept
// at all (every Condition evaluates against the single row under
// scan); this strategy is new, added purely to give later pushdown
// strategies a safe boundary once a correlated subquery plan shape is
// present.
type CorrelatedFilterHandling struct{}

func (s *CorrelatedFilterHandling) Name() string { return "correlated_filter_handling" }

// ShouldIRun skips this strategy entirely unless some identifier in
// the plan is actually marked outer_ref, since the tagging work is
// pointless on a plan with no correlated subquery.
func (s *CorrelatedFilterHandling) ShouldIRun(root *plan.Node) bool {
	return anyOuterRef(root)
}

func anyOuterRef(n *plan.Node) bool {
	if n == nil {
		return false
	}
	if n.Type() == plan.NodeIdentifier {
		if v, ok := n.Get("outer_ref"); ok {
			if b, ok := v.(bool); ok && b {
				return true
			}
		}
	}
	for _, c := range n.Children() {
		if anyOuterRef(c) {
			return true
		}
	}
	return false
}

func (s *CorrelatedFilterHandling) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *CorrelatedFilterHandling) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return rewritePredicates(root, func(expr *plan.Node) *plan.Node {
		return markCorrelatedConjuncts(expr, st)
	})
}

// markCorrelatedConjuncts flattens an AND chain and tags each conjunct
// referencing an outer identifier with a "correlated" attribute, so
// Predicate Pushdown can treat it as immovable while the rest of the
// conjuncts remain eligible.
func markCorrelatedConjuncts(expr *plan.Node, st *Stats) *plan.Node {
	if expr == nil {
		return nil
	}
	if expr.Type() != plan.NodeAnd {
		if anyOuterRef(expr) {
			expr.Set("correlated", true)
			bump(st, "correlated_conjunct_marked")
		}
		return expr
	}
	kids := flattenChain(expr, plan.NodeAnd)
	for _, k := range kids {
		if anyOuterRef(k) {
			k.Set("correlated", true)
			bump(st, "correlated_conjunct_marked")
		}
	}
	return plan.NewAnd(kids...)
}

// IsCorrelated reports whether a predicate expression was marked
// immovable by CorrelatedFilterHandling.
func IsCorrelated(expr *plan.Node) bool {
	if expr == nil {
		return false
	}
	v, ok := expr.Get("correlated")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
