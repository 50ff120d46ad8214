// Package assertion aggregates the test results a script recorded via
// pm.test/pm.expect into a pass/fail summary. It evaluates nothing
// itself — predicates are the script's job — it only counts.
package assertion

import "github.com/sadopc/courier/internal/scripting"

// Summary is the aggregate outcome of one request's scripted assertions.
type Summary struct {
	Total         int
	Passed        int
	Failed        int
	IterationPassed bool
}

// Aggregate reduces a request's recorded test results plus whether the
// pre/post scripts or the dispatch itself errored into a Summary. An
// iteration only passes when every assertion passed and neither a
// script nor the executor raised an error.
func Aggregate(results []scripting.TestResult, scriptErr, executorErr error) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	s.IterationPassed = s.Failed == 0 && scriptErr == nil && executorErr == nil
	return s
}

// Merge folds another Summary in, for rolling up per-request summaries
// into a whole run's totals.
func Merge(into Summary, other Summary) Summary {
	into.Total += other.Total
	into.Passed += other.Passed
	into.Failed += other.Failed
	return into
}
