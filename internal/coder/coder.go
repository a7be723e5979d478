// Package coder turns one dependency path of a Stage 2 PathPlan into a
// pure-data execution plan: a topologically ordered sequence of steps,
// each naming the agent invocation to run and the predecessors the
// dispatcher must observe as complete first.
//
// The execution plan never carries source code — the original's
// equivalent stage assembles a runnable script, but the redesigned
// Worker Executor interprets a data structure directly, so this package
// only orders and annotates tasks (topological sort plus a wait-for-set
// per step), grounded on the step/dependency shape runner.py's
// script-assembly consumes.
package coder

import (
	"sort"

	"github.com/aj002fr/depgraph/internal/models"
)

// Build returns the ExecutionPlan for one dependency path, using the
// Stage 2-enriched subtasks. Tasks not present in enriched (unmappable,
// or outside this path) are silently skipped; a task is included exactly
// once even if it repeats across path/enriched due to upstream fan-in
// merges.
func Build(path []string, enriched map[string]*models.Subtask) *models.ExecutionPlan {
	ordered := topoSortWithinPath(path, enriched)

	steps := make([]models.ExecutionStep, 0, len(ordered))
	included := map[string]bool{}
	for _, id := range ordered {
		included[id] = true
	}

	for _, id := range ordered {
		t := enriched[id]
		var waitFor []string
		for _, dep := range t.Dependencies {
			if included[dep] {
				waitFor = append(waitFor, dep)
			}
		}
		steps = append(steps, models.ExecutionStep{
			TaskID:      t.TaskID,
			AgentID:     t.AgentID,
			ToolID:      t.ToolID,
			Params:      t.Params,
			WaitFor:     waitFor,
			NeedsReview: t.NeedsReview,
		})
	}

	return &models.ExecutionPlan{Path: path, Steps: steps}
}

// topoSortWithinPath orders path's tasks so every dependency precedes its
// dependents, breaking ties by the path's original order (a dependency
// path from the analyzer is already a valid linear extension, so this is
// mostly a defensive re-sort plus the enriched-subtask filter).
func topoSortWithinPath(path []string, enriched map[string]*models.Subtask) []string {
	present := make([]string, 0, len(path))
	for _, id := range path {
		if _, ok := enriched[id]; ok {
			present = append(present, id)
		}
	}
	ordinal := make(map[string]int, len(present))
	for i, id := range present {
		ordinal[id] = i
	}

	visited := map[string]bool{}
	var order []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		t := enriched[id]
		deps := append([]string{}, t.Dependencies...)
		sort.Slice(deps, func(i, j int) bool { return ordinal[deps[i]] < ordinal[deps[j]] })
		for _, dep := range deps {
			if _, ok := enriched[dep]; ok {
				visit(dep)
			}
		}
		order = append(order, id)
	}
	for _, id := range present {
		visit(id)
	}
	return order
}
