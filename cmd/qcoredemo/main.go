// Command qcoredemo exercises the full pipeline end to end: it
// generates (or loads) JSONL, decodes it into a columnar batch, builds
// relation statistics and a bloom filter over it, constructs a logical
// plan referencing that batch, runs the plan through the optimizer,
// and reports what each stage did.
//
// Adapted from the teacher's cmd/benchmark/main.go, which generates a
// synthetic CSV file and times indexing it; this demo generates
// synthetic JSONL instead and walks it through decode, stats, and
// plan optimization rather than a single indexing pass.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/parqlite/qcore/internal/cachex"
	"github.com/parqlite/qcore/internal/hashing"
	"github.com/parqlite/qcore/internal/jsonl"
	"github.com/parqlite/qcore/internal/optimizer"
	"github.com/parqlite/qcore/internal/plan"
	"github.com/parqlite/qcore/internal/relstats"
)

func main() {
	inputPath := flag.String("input", "", "path to a JSONL file (generates a synthetic one if empty)")
	rows := flag.Int("rows", 200_000, "rows to generate when -input is empty")
	sampleLines := flag.Int("sample-lines", jsonl.DefaultSampleLines, "schema-inference sample size")
	verbose := flag.Bool("v", false, "print per-row codes as they're generated")
	flag.Parse()

	data, err := loadOrGenerate(*inputPath, *rows, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qcoredemo:", err)
		os.Exit(1)
	}

	start := time.Now()
	result := jsonl.Decode(data, nil, *sampleLines)
	decodeElapsed := time.Since(start)

	fmt.Printf("decoded %d rows, %d columns in %v (lines skipped: %v)\n",
		result.Batch.RowCount, len(result.Batch.Columns), decodeElapsed, result.AnyLinesSkipped)

	stats := relstats.Build(&result.Batch)
	fmt.Printf("relation stats: %d rows, %d columns tracked\n", stats.RecordCount, len(stats.Columns))
	for _, col := range result.Batch.Schema.Names {
		cs := stats.Columns[col]
		fmt.Printf("  %-12s null_count=%-8d cardinality~=%d\n", col, cs.NullCount, cs.CardinalityEstimate)
	}

	bloomCol := "code"
	if _, ok := result.Batch.ColumnByName(bloomCol); !ok && len(result.Batch.Columns) > 0 {
		bloomCol = result.Batch.Columns[0].Name
	}
	filter, err := hashing.Create(&result.Batch, []string{bloomCol})
	if err != nil {
		fmt.Fprintln(os.Stderr, "qcoredemo: building bloom filter:", err)
	} else {
		reduction := filter.EstimateReduction(&result.Batch, []string{bloomCol})
		fmt.Printf("bloom filter over %q: tier=%d estimated self-probe reduction=%.2f%%\n",
			bloomCol, filter.Tier(), reduction*100)
	}

	// A small LRU-K cache stands in for a plan/page cache, keyed by
	// the serialized relation stats so repeat lookups of this batch's
	// stats skip rebuilding them.
	planCache := cachex.New(cachex.Config{K: 2, MaxSize: 64})
	cacheKey := fmt.Sprintf("relstats:%s", bloomCol)
	if _, hit := planCache.Get(cacheKey); !hit {
		planCache.Set(cacheKey, stats.Serialize(), true)
	}
	fmt.Printf("plan cache: size=%d hits=%d misses=%d\n", planCache.Size(), planCache.GetStats().Hits, planCache.GetStats().Misses)

	root := buildDemoPlan(result.Batch.Schema.Names, stats, bloomCol)
	if err := plan.Validate(root); err != nil {
		fmt.Fprintln(os.Stderr, "qcoredemo: invalid plan:", err)
		os.Exit(1)
	}

	optimized, rewriteStats := optimizer.Optimize(root)
	if err := plan.Validate(optimized); err != nil {
		fmt.Fprintln(os.Stderr, "qcoredemo: optimizer produced an invalid plan:", err)
		os.Exit(1)
	}

	fmt.Printf("optimizer applied %d rewrites across %d strategies:\n", rewriteStats.Total(), len(optimizer.Pipeline()))
	printPlan(optimized, 0)
}

// buildDemoPlan constructs SCAN -> FILTER(code = 'US-0' OR code = 'US-1') -> PROJECT(columns),
// attaching relstats to the scan so join/predicate ordering has
// something real to consult.
func buildDemoPlan(columns []string, stats *relstats.RelationStats, filterColumn string) *plan.Node {
	scan := plan.NewScan("demo")
	scan.Set("schema", columns)
	scan.Set("relstats", stats)

	a := plan.NewComparison(plan.OpEq, plan.NewIdentifier(filterColumn), plan.NewLiteral("US-0"))
	b := plan.NewComparison(plan.OpEq, plan.NewIdentifier(filterColumn), plan.NewLiteral("US-1"))
	predicate := plan.NewOr(a, b)

	filter := plan.NewFilter(scan, predicate)
	return plan.NewProject(filter, columns)
}

func printPlan(n *plan.Node, depth int) {
	if n == nil {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%s%s\n", indent, n.Type())
	for _, child := range n.Children() {
		printPlan(child, depth+1)
	}
}

// loadOrGenerate reads inputPath if set, otherwise generates rows
// synthetic JSONL records the same way the teacher's benchmark
// generates synthetic CSV rows: one field at a time into a reused
// buffer, written through a buffered writer.
func loadOrGenerate(inputPath string, rows int, verbose bool) ([]byte, error) {
	if inputPath != "" {
		return os.ReadFile(inputPath)
	}

	var buf bytes.Buffer
	w := bufio.NewWriterSize(&buf, 64*1024)

	rng := rand.New(rand.NewSource(123))
	line := make([]byte, 0, 128)
	for i := 0; i < rows; i++ {
		line = line[:0]
		line = fmt.Appendf(line, `{"id":%d,"code":"US-%d","value":%d,"active":%t}`+"\n",
			i, rng.Intn(10), rng.Intn(10000), rng.Intn(2) == 0)
		if verbose {
			fmt.Fprintln(os.Stderr, string(line))
		}
		if _, err := w.Write(line); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
