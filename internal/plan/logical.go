package plan

import "fmt"

// JoinKind is a JOIN node's join type, spec.md §4.7.5/§4.7.7.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL_OUTER"
	JoinSemi  JoinKind = "SEMI"
	JoinAnti  JoinKind = "ANTI"
)

// NewScan creates a SCAN leaf plan node over a named source.
func NewScan(source string) *Node {
	n := New(NodeScan)
	n.Set("source", source)
	return n
}

// NewFilter creates a FILTER plan node over input with a predicate
// expression tree.
func NewFilter(input *Node, predicate *Node) *Node {
	n := New(NodeFilter)
	n.Set("input", input)
	n.Set("predicate", predicate)
	return n
}

// NewProject creates a PROJECT plan node selecting columns, in order,
// from input.
func NewProject(input *Node, columns []string) *Node {
	n := New(NodeProject)
	n.Set("input", input)
	n.Set("columns", append([]string(nil), columns...))
	return n
}

// NewJoin creates a JOIN plan node over left/right with the given
// join kind and predicate.
func NewJoin(kind JoinKind, left, right, predicate *Node) *Node {
	n := New(NodeJoin)
	n.Set("join_kind", string(kind))
	n.Set("left", left)
	n.Set("right", right)
	n.Set("predicate", predicate)
	return n
}

// NewLimit creates a LIMIT plan node capping input to count rows.
func NewLimit(input *Node, count int64) *Node {
	n := New(NodeLimit)
	n.Set("input", input)
	n.Set("count", count)
	return n
}

// NewDistinct creates a DISTINCT plan node deduplicating input rows
// over the given columns (empty = all columns).
func NewDistinct(input *Node, columns []string) *Node {
	n := New(NodeDistinct)
	n.Set("input", input)
	n.Set("columns", append([]string(nil), columns...))
	return n
}

// NewAggregate creates an AGGREGATE plan node grouping input by
// groupKeys.
func NewAggregate(input *Node, groupKeys []string) *Node {
	n := New(NodeAggregate)
	n.Set("input", input)
	n.Set("group_keys", append([]string(nil), groupKeys...))
	return n
}

// Input returns a single-input plan node's child (FILTER, PROJECT,
// LIMIT, DISTINCT, AGGREGATE).
func (n *Node) Input() *Node {
	v, _ := n.Get("input")
	child, _ := v.(*Node)
	return child
}

// SetInput replaces a single-input plan node's child, used by
// optimizer strategies that splice nodes in or out of a chain.
func (n *Node) SetInput(input *Node) {
	n.Set("input", input)
}

// Predicate returns a FILTER or JOIN node's predicate expression.
func (n *Node) Predicate() *Node {
	v, _ := n.Get("predicate")
	child, _ := v.(*Node)
	return child
}

// SetPredicate replaces a FILTER or JOIN node's predicate expression.
func (n *Node) SetPredicate(predicate *Node) {
	n.Set("predicate", predicate)
}

// Columns returns a PROJECT or DISTINCT node's column list.
func (n *Node) Columns() []string {
	v, _ := n.Get("columns")
	cols, _ := v.([]string)
	return cols
}

// SetColumns replaces a PROJECT or DISTINCT node's column list.
func (n *Node) SetColumns(columns []string) {
	n.Set("columns", append([]string(nil), columns...))
}

// JoinKindOf returns a JOIN node's join kind.
func (n *Node) JoinKindOf() JoinKind {
	v, _ := n.Get("join_kind")
	kind, _ := v.(string)
	return JoinKind(kind)
}

// Limit returns a LIMIT node's row count.
func (n *Node) Limit() int64 {
	v, _ := n.Get("count")
	count, _ := v.(int64)
	return count
}

// Validate walks the plan rooted at n and reports an error if any
// node is reachable from itself through its children (a DAG-validity
// violation per spec.md §3: a plan must form a rooted DAG, never a
// cycle).
func Validate(root *Node) error {
	onPath := make(map[ID]bool)
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n == nil {
			return nil
		}
		if onPath[n.id] {
			return fmt.Errorf("plan: cycle detected at node %v (type %s)", n.id, n.typ)
		}
		onPath[n.id] = true
		for _, child := range n.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		delete(onPath, n.id)
		return nil
	}
	return walk(root)
}
