package preflight

import (
	"context"

	"ocingest/internal/config"
	"ocingest/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. A nil
// user checker skips the Opencast check.
func RunAll(ctx context.Context, cfg *config.Config, opencast UserChecker) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("Raw recording directory", cfg.Paths.RawDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, binaryResult(status))
	}

	if opencast != nil {
		results = append(results, CheckOpencast(ctx, opencast))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func binaryResult(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	if status.Optional {
		return Result{Name: status.Name, Passed: true, Detail: status.Detail + " (optional)"}
	}
	return Result{Name: status.Name, Detail: status.Detail}
}
