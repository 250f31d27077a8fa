// Package optimizer implements the rule-based logical-plan optimizer
// of spec.md §4.7: a fixed-order pipeline of sixteen rewrite
// strategies, each counting its own rewrites into a shared query
// statistics object.
//
// Grounded on the teacher's query package, which applies a handful of
// ad-hoc rewrites inline in engine.go (e.g. collapsing a double NOT,
// pushing a condition past a projection) without a named strategy
// abstraction; this package generalizes that into the Strategy
// interface and fixed sixteen-stage ordering spec.md requires.
package optimizer

import "github.com/parqlite/qcore/internal/plan"

// Context is threaded through a single strategy's Visit calls over a
// plan tree and then handed to its Complete. runStrategy stores the
// shared rewrite ledger under "stats"; every strategy in this package
// has a no-op Visit and reads that ledger back in Complete. A Visit
// that returns nil leaves the node's children with the parent's
// context.
type Context struct {
	data map[string]any
}

// NewContext creates an empty strategy context.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// Get returns a context value.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Set assigns a context value.
func (c *Context) Set(key string, value any) {
	c.data[key] = value
}

// Strategy is one rewrite pass of the optimizer pipeline.
type Strategy interface {
	// Name identifies the strategy.
	Name() string
	// Visit is called once per node, pre-order, and may mutate node or
	// its attributes in place. It returns the (possibly updated)
	// context to thread to the node's children.
	Visit(node *plan.Node, ctx *Context) *Context
	// Complete is called once after the full tree has been visited,
	// and returns the (possibly replaced) plan root.
	Complete(root *plan.Node, ctx *Context) *plan.Node
}

// ConditionalStrategy is implemented by strategies that can be
// skipped entirely for a given plan, e.g. Correlated-Filter handling
// when the plan contains no correlated subquery.
type ConditionalStrategy interface {
	Strategy
	ShouldIRun(root *plan.Node) bool
}

// Stats counts rewrites performed across the pipeline, keyed by the
// rewrite rule's counter name (e.g. "not_not_elimination"), not by
// strategy name.
type Stats struct {
	counters map[string]int64
}

// NewStats creates an empty rewrite-count ledger.
func NewStats() *Stats {
	return &Stats{counters: make(map[string]int64)}
}

// Incr increments name's counter by delta.
func (s *Stats) Incr(name string, delta int64) {
	s.counters[name] += delta
}

// Count returns name's counter value.
func (s *Stats) Count(name string) int64 {
	return s.counters[name]
}

// Total returns the sum of all counters, used to detect a pipeline
// pass that made no changes at all.
func (s *Stats) Total() int64 {
	var total int64
	for _, v := range s.counters {
		total += v
	}
	return total
}

// Pipeline is the fixed-order sequence of strategies applied by
// Optimize.
func Pipeline() []Strategy {
	return []Strategy{
		&BooleanSimplification{},
		&ConstantFolding{passName: "constant_folding_1"},
		&CorrelatedFilterHandling{},
		&PredicateCompaction{},
		&SplitConjunctivePredicates{},
		&PredicateRewriter{},
		&PredicateOrdering{},
		&PredicatePushdown{},
		&ProjectionPushdown{},
		&DistinctPushdown{},
		&LimitPushdown{},
		&JoinRewriter{},
		&JoinOrdering{},
		&OperatorFusion{},
		&RedundantOperatorRemoval{},
		&ConstantFolding{passName: "constant_folding_2"},
	}
}

// Optimize runs the full sixteen-strategy pipeline over root in
// order, returning the rewritten plan and the rewrite-count ledger.
func Optimize(root *plan.Node) (*plan.Node, *Stats) {
	stats := NewStats()
	for _, strat := range Pipeline() {
		if cond, ok := strat.(ConditionalStrategy); ok && !cond.ShouldIRun(root) {
			continue
		}
		root = runStrategy(strat, root, stats)
	}
	return root, stats
}

func runStrategy(strat Strategy, root *plan.Node, stats *Stats) *plan.Node {
	ctx := NewContext()
	ctx.Set("stats", stats)
	visitTree(strat, root, ctx)
	return strat.Complete(root, ctx)
}

// visitTree walks root pre-order, calling strat.Visit on every node
// reachable through Children, including expression-tree nodes nested
// under plan nodes (predicates, projections).
func visitTree(strat Strategy, node *plan.Node, ctx *Context) {
	if node == nil {
		return
	}
	childCtx := strat.Visit(node, ctx)
	if childCtx == nil {
		childCtx = ctx
	}
	for _, child := range node.Children() {
		visitTree(strat, child, childCtx)
	}
}
