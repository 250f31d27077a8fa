package plan

// NewLiteral creates a LITERAL expression node wrapping a scalar value.
func NewLiteral(value any) *Node {
	n := New(NodeLiteral)
	n.Set("value", value)
	return n
}

// NewIdentifier creates an IDENTIFIER expression node naming a column.
func NewIdentifier(column string) *Node {
	n := New(NodeIdentifier)
	n.Set("column", column)
	return n
}

// NewComparison creates a COMPARISON_OPERATOR node: left op right.
func NewComparison(op ComparisonOp, left, right *Node) *Node {
	n := New(NodeComparisonOperator)
	n.Set("operator", string(op))
	n.Set("left", left)
	n.Set("right", right)
	return n
}

// NewAnd creates an n-ary AND node over children.
func NewAnd(children ...*Node) *Node {
	n := New(NodeAnd)
	n.Set("children", append([]*Node(nil), children...))
	return n
}

// NewOr creates an n-ary OR node over children.
func NewOr(children ...*Node) *Node {
	n := New(NodeOr)
	n.Set("children", append([]*Node(nil), children...))
	return n
}

// NewNot creates a NOT node wrapping child.
func NewNot(child *Node) *Node {
	n := New(NodeNot)
	n.Set("child", child)
	return n
}

// NewNested wraps an expression as a parenthesized/nested group, used
// to preserve explicit user grouping across rewrites that would
// otherwise flatten it.
func NewNested(child *Node) *Node {
	n := New(NodeNested)
	n.Set("child", child)
	return n
}

// NewExpressionList creates an EXPRESSION_LIST node, used for IN/NOT
// IN value lists and BETWEEN bounds.
func NewExpressionList(items ...*Node) *Node {
	n := New(NodeExpressionList)
	n.Set("children", append([]*Node(nil), items...))
	return n
}

// NewFunctionCall creates a FUNCTION_CALL node, used by the predicate
// rewriter for functions like INSTR and REGEX_MATCH that have no
// dedicated comparison operator.
func NewFunctionCall(name string, args ...*Node) *Node {
	n := New(NodeFunctionCall)
	n.Set("func", name)
	n.Set("args", append([]*Node(nil), args...))
	return n
}

// FuncName returns a FUNCTION_CALL node's function name.
func (n *Node) FuncName() (string, bool) {
	v, ok := n.Get("func")
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Args returns a FUNCTION_CALL node's argument list.
func (n *Node) Args() []*Node {
	v, _ := n.Get("args")
	args, _ := v.([]*Node)
	return args
}

// Operator returns a COMPARISON_OPERATOR node's operator.
func (n *Node) Operator() (ComparisonOp, bool) {
	v, ok := n.Get("operator")
	if !ok {
		return "", false
	}
	return ComparisonOp(v.(string)), true
}

// Left returns a COMPARISON_OPERATOR node's left operand.
func (n *Node) Left() *Node {
	v, _ := n.Get("left")
	child, _ := v.(*Node)
	return child
}

// Right returns a COMPARISON_OPERATOR node's right operand.
func (n *Node) Right() *Node {
	v, _ := n.Get("right")
	child, _ := v.(*Node)
	return child
}

// Child returns a NOT or NESTED node's single child.
func (n *Node) Child() *Node {
	v, _ := n.Get("child")
	child, _ := v.(*Node)
	return child
}

// ExprChildren returns an AND/OR/EXPRESSION_LIST node's child list.
func (n *Node) ExprChildren() []*Node {
	v, _ := n.Get("children")
	kids, _ := v.([]*Node)
	return kids
}

// Literal returns a LITERAL node's wrapped value.
func (n *Node) Literal() any {
	v, _ := n.Get("value")
	return v
}

// Column returns an IDENTIFIER node's column name.
func (n *Node) Column() (string, bool) {
	v, ok := n.Get("column")
	if !ok {
		return "", false
	}
	return v.(string), true
}
