package optimizer

import "github.com/parqlite/qcore/internal/plan"

// BooleanSimplification implements spec.md §4.7.1: double-negation
// elimination, NOT-push-down through comparisons and OR/AND chains
// (De Morgan's, n-ary over OR), identity/absorption rules for AND and
// OR over TRUE/FALSE/self, and AND-chain re-association.
//
// Grounded on the teacher's engine.go, which collapses a double NOT
// inline while evaluating a Condition tree; here that one-off
// collapse becomes one case of a general bottom-up expression
// rewriter.
type BooleanSimplification struct{}

func (s *BooleanSimplification) Name() string { return "boolean_simplification" }

func (s *BooleanSimplification) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *BooleanSimplification) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return rewritePredicates(root, func(expr *plan.Node) *plan.Node {
		return simplifyBoolean(expr, st)
	})
}

// rewritePredicates walks the plan tree replacing FILTER/JOIN
// predicate expressions with fn's rewrite, leaving the rest of the
// plan structure untouched. Non-predicate children are recursed into
// unchanged so expressions nested deeper in the plan (e.g. below a
// PROJECT) are also rewritten.
func rewritePredicates(node *plan.Node, fn func(*plan.Node) *plan.Node) *plan.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case plan.NodeFilter:
		node.SetInput(rewritePredicates(node.Input(), fn))
		node.SetPredicate(fn(node.Predicate()))
	case plan.NodeJoin:
		left, _ := node.Get("left")
		right, _ := node.Get("right")
		if l, ok := left.(*plan.Node); ok {
			node.Set("left", rewritePredicates(l, fn))
		}
		if r, ok := right.(*plan.Node); ok {
			node.Set("right", rewritePredicates(r, fn))
		}
		node.SetPredicate(fn(node.Predicate()))
	default:
		if input := node.Input(); input != nil {
			node.SetInput(rewritePredicates(input, fn))
		}
	}
	return node
}

// simplifyBoolean recursively simplifies an expression-tree node,
// bottom-up, applying each rule until a fixed point within this call.
func simplifyBoolean(expr *plan.Node, st *Stats) *plan.Node {
	if expr == nil {
		return nil
	}

	switch expr.Type() {
	case plan.NodeNot:
		child := simplifyBoolean(expr.Child(), st)
		return simplifyNot(child, st)

	case plan.NodeAnd:
		kids := flattenChain(expr, plan.NodeAnd)
		for i, k := range kids {
			kids[i] = simplifyBoolean(k, st)
		}
		return rebuildAnd(kids, st)

	case plan.NodeOr:
		kids := flattenChain(expr, plan.NodeOr)
		for i, k := range kids {
			kids[i] = simplifyBoolean(k, st)
		}
		return rebuildOr(kids, st)

	default:
		return expr
	}
}

// simplifyNot applies the NOT-elimination rules to NOT(child).
func simplifyNot(child *plan.Node, st *Stats) *plan.Node {
	switch child.Type() {
	case plan.NodeNot:
		// NOT(NOT X) -> X
		bump(st, "not_not_elimination")
		return child.Child()

	case plan.NodeComparisonOperator:
		op, _ := child.Operator()
		if inv, ok := plan.InverseOp(op); ok {
			bump(st, "not_comparison_inversion")
			return plan.NewComparison(inv, child.Left(), child.Right())
		}
		return plan.NewNot(child)

	case plan.NodeOr:
		// NOT(A OR B OR ...) -> NOT A AND NOT B AND ...
		kids := flattenChain(child, plan.NodeOr)
		negated := make([]*plan.Node, len(kids))
		for i, k := range kids {
			negated[i] = simplifyNot(k, st)
		}
		bump(st, "demorgan_or_to_and")
		return rebuildAnd(negated, st)

	case plan.NodeAnd:
		// NOT(A AND B AND ...) -> NOT A OR NOT B OR ...
		kids := flattenChain(child, plan.NodeAnd)
		negated := make([]*plan.Node, len(kids))
		for i, k := range kids {
			negated[i] = simplifyNot(k, st)
		}
		bump(st, "demorgan_and_to_or")
		return rebuildOr(negated, st)

	default:
		return plan.NewNot(child)
	}
}

// flattenChain collapses a chain of same-type (AND or OR) nodes into
// a single flat child list, so NOT(A OR (B OR C)) is treated the same
// as NOT(A OR B OR C).
func flattenChain(expr *plan.Node, typ plan.NodeType) []*plan.Node {
	var out []*plan.Node
	var walk func(n *plan.Node)
	walk = func(n *plan.Node) {
		if n.Type() == typ {
			for _, c := range n.ExprChildren() {
				walk(c)
			}
			return
		}
		out = append(out, n)
	}
	walk(expr)
	return out
}

func isLiteralBool(n *plan.Node, want bool) bool {
	if n.Type() != plan.NodeLiteral {
		return false
	}
	b, ok := n.Literal().(bool)
	return ok && b == want
}

// rebuildAnd applies AND's identity/absorption rules over a flat
// child list and rebuilds a single n-ary AND node.
func rebuildAnd(kids []*plan.Node, st *Stats) *plan.Node {
	var kept []*plan.Node
	seen := make(map[plan.ID]bool)
	for _, k := range kids {
		if isLiteralBool(k, false) {
			// A AND FALSE -> FALSE
			bump(st, "and_false_absorption")
			return plan.NewLiteral(false)
		}
		if isLiteralBool(k, true) {
			// A AND TRUE -> A (drop the TRUE)
			bump(st, "and_true_identity")
			continue
		}
		if seen[k.ID()] {
			// A AND A -> A (same identity)
			bump(st, "and_self_idempotence")
			continue
		}
		seen[k.ID()] = true
		kept = append(kept, k)
	}
	return reassociate(kept, plan.NewAnd, plan.NodeAnd, st, "and_reassociation")
}

// rebuildOr applies OR's identity/absorption rules over a flat child
// list and rebuilds a single n-ary OR node.
func rebuildOr(kids []*plan.Node, st *Stats) *plan.Node {
	var kept []*plan.Node
	seen := make(map[plan.ID]bool)
	for _, k := range kids {
		if isLiteralBool(k, true) {
			// A OR TRUE -> TRUE
			bump(st, "or_true_absorption")
			return plan.NewLiteral(true)
		}
		if isLiteralBool(k, false) {
			// A OR FALSE -> A
			bump(st, "or_false_identity")
			continue
		}
		if seen[k.ID()] {
			bump(st, "or_self_idempotence")
			continue
		}
		seen[k.ID()] = true
		kept = append(kept, k)
	}
	return reassociate(kept, plan.NewOr, plan.NodeOr, st, "")
}

// reassociate rebuilds a flat child list into one n-ary node via
// build, collapsing to the lone child (or a TRUE/FALSE-neutral
// empty chain) when there are fewer than two.
func reassociate(kids []*plan.Node, build func(...*plan.Node) *plan.Node, typ plan.NodeType, st *Stats, counterName string) *plan.Node {
	switch len(kids) {
	case 0:
		// AND's neutral element is TRUE, OR's is FALSE: an empty AND
		// chain means every conjunct was absorbed as trivially true,
		// an empty OR chain means every disjunct was absorbed as
		// trivially false.
		return plan.NewLiteral(typ == plan.NodeAnd)
	case 1:
		return kids[0]
	default:
		if counterName != "" {
			bump(st, counterName)
		}
		return build(kids...)
	}
}

func bump(st *Stats, name string) {
	if st != nil {
		st.Incr(name, 1)
	}
}
