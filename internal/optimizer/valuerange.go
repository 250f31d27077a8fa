package optimizer

import "github.com/parqlite/qcore/internal/plan"

// Limit is one bound of a ValueRange: a literal value and whether the
// bound itself is included in the range.
type Limit struct {
	Value     any
	Inclusive bool
}

// ValueRange is the accumulated bound on a single column across a
// group of conjuncts, spec.md §4.7.2. Untrackable is set when a
// conjunct's operator or operand type can't be folded into a simple
// lower/upper bound (e.g. LIKE), at which point the whole group is
// left alone.
type ValueRange struct {
	Lower       *Limit
	Upper       *Limit
	Untrackable bool
}

// applyComparison narrows r by one `column op literal` conjunct.
// Returns false if the conjunct can't be represented as a bound
// (r is left untouched and Untrackable is set by the caller).
func (r *ValueRange) applyComparison(op plan.ComparisonOp, literal any) bool {
	switch op {
	case plan.OpEq:
		if existing, ok := r.existingEquality(); ok {
			if cmp, ok2 := compareScalars(existing, literal); !ok2 || cmp != 0 {
				r.forceContradiction(existing)
				return true
			}
		}
		r.Lower = &Limit{Value: literal, Inclusive: true}
		r.Upper = &Limit{Value: literal, Inclusive: true}
		return true
	case plan.OpGt:
		r.raiseLower(literal, false)
		return true
	case plan.OpGtEq:
		r.raiseLower(literal, true)
		return true
	case plan.OpLt:
		r.lowerUpper(literal, false)
		return true
	case plan.OpLtEq:
		r.lowerUpper(literal, true)
		return true
	default:
		return false
	}
}

// raiseLower replaces r.Lower with (value, inclusive) iff it is a
// more restrictive (larger, or equal-but-now-exclusive) bound.
func (r *ValueRange) raiseLower(value any, inclusive bool) {
	if r.Lower == nil {
		r.Lower = &Limit{Value: value, Inclusive: inclusive}
		return
	}
	cmp, ok := compareScalars(value, r.Lower.Value)
	if !ok {
		r.Untrackable = true
		return
	}
	if cmp > 0 || (cmp == 0 && r.Lower.Inclusive && !inclusive) {
		r.Lower = &Limit{Value: value, Inclusive: inclusive}
	}
}

// lowerUpper replaces r.Upper with (value, inclusive) iff it is a
// more restrictive (smaller, or equal-but-now-exclusive) bound.
func (r *ValueRange) lowerUpper(value any, inclusive bool) {
	if r.Upper == nil {
		r.Upper = &Limit{Value: value, Inclusive: inclusive}
		return
	}
	cmp, ok := compareScalars(value, r.Upper.Value)
	if !ok {
		r.Untrackable = true
		return
	}
	if cmp < 0 || (cmp == 0 && r.Upper.Inclusive && !inclusive) {
		r.Upper = &Limit{Value: value, Inclusive: inclusive}
	}
}

// existingEquality reports the value of an already-applied `col = v`
// bound, i.e. an inclusive-both range whose lower and upper coincide.
func (r *ValueRange) existingEquality() (any, bool) {
	if r.Lower == nil || r.Upper == nil || !r.Lower.Inclusive || !r.Upper.Inclusive {
		return nil, false
	}
	if cmp, ok := compareScalars(r.Lower.Value, r.Upper.Value); ok && cmp == 0 {
		return r.Lower.Value, true
	}
	return nil, false
}

// forceContradiction pins both bounds to the same value with both
// ends exclusive, an unsatisfiable range Contradictory always catches
// regardless of value's concrete comparison semantics.
func (r *ValueRange) forceContradiction(value any) {
	r.Lower = &Limit{Value: value, Inclusive: false}
	r.Upper = &Limit{Value: value, Inclusive: false}
}

// Contradictory reports whether r's bounds can never be satisfied:
// lower > upper, or lower == upper with either bound exclusive.
func (r *ValueRange) Contradictory() bool {
	if r.Lower == nil || r.Upper == nil {
		return false
	}
	cmp, ok := compareScalars(r.Lower.Value, r.Upper.Value)
	if !ok {
		return false
	}
	if cmp > 0 {
		return true
	}
	if cmp == 0 && !(r.Lower.Inclusive && r.Upper.Inclusive) {
		return true
	}
	return false
}

// ToConjuncts regenerates the minimal set of comparison nodes for
// identifier `col` implied by r: a single Eq if both bounds coincide
// inclusive, otherwise one lower-bound and/or one upper-bound
// comparison.
func (r *ValueRange) ToConjuncts(col *plan.Node) []*plan.Node {
	if r.Lower != nil && r.Upper != nil {
		if cmp, ok := compareScalars(r.Lower.Value, r.Upper.Value); ok && cmp == 0 && r.Lower.Inclusive && r.Upper.Inclusive {
			return []*plan.Node{plan.NewComparison(plan.OpEq, col, plan.NewLiteral(r.Lower.Value))}
		}
	}
	var out []*plan.Node
	if r.Lower != nil {
		op := plan.OpGt
		if r.Lower.Inclusive {
			op = plan.OpGtEq
		}
		out = append(out, plan.NewComparison(op, col, plan.NewLiteral(r.Lower.Value)))
	}
	if r.Upper != nil {
		op := plan.OpLt
		if r.Upper.Inclusive {
			op = plan.OpLtEq
		}
		out = append(out, plan.NewComparison(op, col, plan.NewLiteral(r.Upper.Value)))
	}
	return out
}
