package optimizer

import (
	"strings"

	"github.com/parqlite/qcore/internal/plan"
)

// PredicateRewriter implements spec.md §4.7.3's pattern-normalization
// rules: singleton IN collapses to Eq, a wildcard-free LIKE collapses
// to Eq, a single-%-wrapped LIKE becomes an INSTR() call,
// STARTS_WITH/ENDS_WITH expand to their LIKE-pattern equivalent, a
// same-column OR-of-LIKEs collapses to one REGEX_MATCH, and a
// same-column OR-of-equalities collapses to IN.
//
// CASE-WHEN collapsing (the spec's final rewrite rule) is not
// implemented: no example in the pack or spec.md's grammar defines a
// CASE/WHEN node shape to collapse, so there is nothing concrete to
// rewrite — see DESIGN.md.
//
// Grounded on the teacher's query package, which only ever recognizes
// OpLike/OpIn as already-given leaf operators (filter.go's FilterOp)
// with no normalization between them; this strategy adds the
// cross-shape rewriting the teacher never needed for its fixed CSV
// filter grammar.
type PredicateRewriter struct{}

func (s *PredicateRewriter) Name() string { return "predicate_rewriter" }

func (s *PredicateRewriter) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *PredicateRewriter) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return rewritePredicates(root, func(expr *plan.Node) *plan.Node {
		return rewritePattern(expr, st)
	})
}

func rewritePattern(expr *plan.Node, st *Stats) *plan.Node {
	if expr == nil {
		return nil
	}
	switch expr.Type() {
	case plan.NodeAnd:
		kids := expr.ExprChildren()
		for i, k := range kids {
			kids[i] = rewritePattern(k, st)
		}
		return plan.NewAnd(kids...)

	case plan.NodeOr:
		kids := expr.ExprChildren()
		// Try whole-disjunction merges against the original, unrewritten
		// conjuncts first: mergeLikeDisjunction specifically needs to see
		// `x LIKE pattern` before a per-child rewrite turns a %-wrapped
		// pattern into an INSTR() call.
		if merged, ok := mergeLikeDisjunction(kids); ok {
			bump(st, "like_disjunction_to_regex")
			return merged
		}
		if merged, ok := mergeEqDisjunction(kids); ok {
			bump(st, "eq_disjunction_to_in")
			return merged
		}
		for i, k := range kids {
			kids[i] = rewritePattern(k, st)
		}
		return plan.NewOr(kids...)

	case plan.NodeNot:
		return plan.NewNot(rewritePattern(expr.Child(), st))

	case plan.NodeComparisonOperator:
		return rewriteComparison(expr, st)

	case plan.NodeFunctionCall:
		return rewriteFunctionCall(expr, st)

	default:
		return expr
	}
}

func rewriteComparison(expr *plan.Node, st *Stats) *plan.Node {
	op, _ := expr.Operator()
	left, right := expr.Left(), expr.Right()

	if op == plan.OpIn && right.Type() == plan.NodeExpressionList {
		items := right.ExprChildren()
		if len(items) == 1 {
			bump(st, "singleton_in_to_eq")
			return plan.NewComparison(plan.OpEq, left, items[0])
		}
		return expr
	}

	if op == plan.OpLike && right.Type() == plan.NodeLiteral {
		pattern, ok := right.Literal().(string)
		if !ok {
			return expr
		}
		if !strings.ContainsAny(pattern, "%_") {
			bump(st, "literal_like_to_eq")
			return plan.NewComparison(plan.OpEq, left, plan.NewLiteral(pattern))
		}
		if strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%") && !strings.ContainsAny(pattern[1:len(pattern)-1], "%_") {
			inner := pattern[1 : len(pattern)-1]
			bump(st, "contains_like_to_instr")
			call := plan.NewFunctionCall("INSTR", left, plan.NewLiteral(inner))
			return plan.NewComparison(plan.OpGt, call, plan.NewLiteral(int64(0)))
		}
	}

	return expr
}

func rewriteFunctionCall(expr *plan.Node, st *Stats) *plan.Node {
	name, _ := expr.FuncName()
	args := expr.Args()
	switch name {
	case "STARTS_WITH":
		if len(args) != 2 || args[1].Type() != plan.NodeLiteral {
			return expr
		}
		prefix, ok := args[1].Literal().(string)
		if !ok {
			return expr
		}
		bump(st, "starts_with_to_like")
		return plan.NewComparison(plan.OpLike, args[0], plan.NewLiteral(prefix+"%"))

	case "ENDS_WITH":
		if len(args) != 2 || args[1].Type() != plan.NodeLiteral {
			return expr
		}
		suffix, ok := args[1].Literal().(string)
		if !ok {
			return expr
		}
		bump(st, "ends_with_to_like")
		return plan.NewComparison(plan.OpLike, args[0], plan.NewLiteral("%"+suffix))

	default:
		return expr
	}
}

// mergeLikeDisjunction recognizes `x LIKE p1 OR x LIKE p2 OR ...`
// (same column on every disjunct) and rewrites it to a single
// REGEX_MATCH(x, p1|p2|...) call.
func mergeLikeDisjunction(kids []*plan.Node) (*plan.Node, bool) {
	if len(kids) < 2 {
		return nil, false
	}
	var col string
	var patterns []string
	var colNode *plan.Node
	for _, k := range kids {
		if k.Type() != plan.NodeComparisonOperator {
			return nil, false
		}
		op, _ := k.Operator()
		if op != plan.OpLike {
			return nil, false
		}
		left, right := k.Left(), k.Right()
		if left.Type() != plan.NodeIdentifier || right.Type() != plan.NodeLiteral {
			return nil, false
		}
		name, _ := left.Column()
		if col == "" {
			col = name
			colNode = left
		} else if name != col {
			return nil, false
		}
		pattern, ok := right.Literal().(string)
		if !ok {
			return nil, false
		}
		patterns = append(patterns, likePatternToRegex(pattern))
	}
	regex := strings.Join(patterns, "|")
	call := plan.NewFunctionCall("REGEX_MATCH", colNode, plan.NewLiteral(regex))
	return call, true
}

func likePatternToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		case '.', '+', '*', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// mergeEqDisjunction recognizes `x = v1 OR x = v2 OR ...` (same
// column on every disjunct) and rewrites it to `x IN (v1, v2, ...)`.
func mergeEqDisjunction(kids []*plan.Node) (*plan.Node, bool) {
	if len(kids) < 2 {
		return nil, false
	}
	var col string
	var colNode *plan.Node
	var values []*plan.Node
	for _, k := range kids {
		if k.Type() != plan.NodeComparisonOperator {
			return nil, false
		}
		op, _ := k.Operator()
		if op != plan.OpEq {
			return nil, false
		}
		left, right := k.Left(), k.Right()
		if left.Type() != plan.NodeIdentifier || right.Type() != plan.NodeLiteral {
			return nil, false
		}
		name, _ := left.Column()
		if col == "" {
			col = name
			colNode = left
		} else if name != col {
			return nil, false
		}
		values = append(values, right)
	}
	return plan.NewComparison(plan.OpIn, colNode, plan.NewExpressionList(values...)), true
}
