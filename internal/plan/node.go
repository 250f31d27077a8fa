// Package plan implements the logical plan node and expression tree
// of spec.md §3: an immutable-identity record with a stable 128-bit
// identifier, a discriminated node-type tag, and an open attribute
// map, whose deep copy keeps children independent but preserves each
// node's own identifier so equivalence checks remain stable across
// optimizer rewrite passes.
//
// Grounded on the teacher's query.Condition (a tagged leaf-or-AND/OR
// tree with an Operator, Column, Value, and Children), generalized
// from a fixed filter-only shape to an open attribute map that can
// also describe scan/project/join/limit/aggregate plan nodes.
package plan

import "sync/atomic"

// NodeType discriminates a plan or expression node's shape.
type NodeType string

const (
	NodeScan      NodeType = "SCAN"
	NodeFilter    NodeType = "FILTER"
	NodeProject   NodeType = "PROJECT"
	NodeJoin      NodeType = "JOIN"
	NodeLimit     NodeType = "LIMIT"
	NodeDistinct  NodeType = "DISTINCT"
	NodeAggregate NodeType = "AGGREGATE"

	NodeAnd               NodeType = "AND"
	NodeOr                NodeType = "OR"
	NodeNot               NodeType = "NOT"
	NodeComparisonOperator NodeType = "COMPARISON_OPERATOR"
	NodeLiteral           NodeType = "LITERAL"
	NodeIdentifier        NodeType = "IDENTIFIER"
	NodeNested            NodeType = "NESTED"
	NodeExpressionList    NodeType = "EXPRESSION_LIST"
	NodeFunctionCall      NodeType = "FUNCTION_CALL"
)

// ComparisonOp is a comparison node's operator, spec.md §3.
type ComparisonOp string

const (
	OpEq         ComparisonOp = "Eq"
	OpNotEq      ComparisonOp = "NotEq"
	OpLt         ComparisonOp = "Lt"
	OpLtEq       ComparisonOp = "LtEq"
	OpGt         ComparisonOp = "Gt"
	OpGtEq       ComparisonOp = "GtEq"
	OpIn         ComparisonOp = "In"
	OpNotIn      ComparisonOp = "NotIn"
	OpLike       ComparisonOp = "Like"
	OpNotLike    ComparisonOp = "NotLike"
	OpBetween    ComparisonOp = "Between"
	OpNotBetween ComparisonOp = "NotBetween"
)

// InverseOp returns op's negation, used by Boolean Simplification's
// NOT(X op Y) → X op' Y rewrite.
func InverseOp(op ComparisonOp) (ComparisonOp, bool) {
	switch op {
	case OpEq:
		return OpNotEq, true
	case OpNotEq:
		return OpEq, true
	case OpLt:
		return OpGtEq, true
	case OpLtEq:
		return OpGt, true
	case OpGt:
		return OpLtEq, true
	case OpGtEq:
		return OpLt, true
	default:
		return "", false
	}
}

// ID is the node's stable 128-bit identifier: unique within a process
// and unaffected by DeepCopy.
type ID struct {
	Hi, Lo uint64
}

var idCounter uint64

// newID issues a fresh identifier. The low word is a monotonically
// increasing counter (unique per process), the high word is reserved
// for a future cross-process namespace and is currently always zero.
func newID() ID {
	return ID{Hi: 0, Lo: atomic.AddUint64(&idCounter, 1)}
}

// Node is a logical plan or expression tree node: a stable identity,
// a type tag, and an open map of named attributes.
type Node struct {
	id     ID
	typ    NodeType
	attrs  map[string]any
}

// New creates a node of the given type with a fresh identifier.
func New(typ NodeType) *Node {
	return &Node{id: newID(), typ: typ, attrs: make(map[string]any)}
}

// ID returns the node's stable identifier.
func (n *Node) ID() ID { return n.id }

// Type returns the node's type tag.
func (n *Node) Type() NodeType { return n.typ }

// Get returns the named attribute and whether it is set.
func (n *Node) Get(name string) (any, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Set assigns an attribute. Setting value to nil removes the
// attribute entirely, per spec.md §3 ("setting an attribute to the
// absent value removes it").
func (n *Node) Set(name string, value any) {
	if value == nil {
		delete(n.attrs, name)
		return
	}
	n.attrs[name] = value
}

// AttrNames returns a new slice of the node's attribute names, for
// iteration.
func (n *Node) AttrNames() []string {
	names := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		names = append(names, k)
	}
	return names
}

// Children returns the node's child nodes, found either under a
// "children" attribute ([]*Node) or under any attribute directly
// holding a *Node (e.g. a comparison's "left"/"right"). Entries of a
// "children" list keep their order, but the order across attributes
// is not defined.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, v := range n.attrs {
		switch val := v.(type) {
		case *Node:
			out = append(out, val)
		case []*Node:
			out = append(out, val...)
		}
	}
	return out
}

// DeepCopy produces an independent copy of n and its descendants.
// Every copied node keeps its original's identifier (spec.md §3:
// "deep-copy produces a node with independent children but the same
// identifier"), so identity-based equivalence checks made before a
// copy remain valid against the copy.
func (n *Node) DeepCopy() *Node {
	out := &Node{id: n.id, typ: n.typ, attrs: make(map[string]any, len(n.attrs))}
	for k, v := range n.attrs {
		switch val := v.(type) {
		case *Node:
			out.attrs[k] = val.DeepCopy()
		case []*Node:
			cp := make([]*Node, len(val))
			for i, c := range val {
				cp[i] = c.DeepCopy()
			}
			out.attrs[k] = cp
		default:
			out.attrs[k] = v
		}
	}
	return out
}

// SameIdentity reports whether a and b are the same logical node
// (identity equality by ID, not structural equality), per spec.md
// §4.7.1 ("identity equality of nodes is by their stable identifier,
// not structural").
func SameIdentity(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id
}
