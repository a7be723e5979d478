// Package depgraph validates a task graph and derives the structural
// information the scheduler needs: cycle detection, topological layering
// ("parallel groups"), and leaf-to-root path enumeration.
//
// The algorithms mirror the Python dependency analyzer this engine was
// distilled from: three-color DFS over the reverse (dependents) graph for
// cycle detection, Kahn's algorithm for layering, and a recursive
// root-to-leaf path trace with fan-in merging for the per-task canonical
// dependency path.
package depgraph

import (
	"sort"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

// AnalysisResult is what Analyze returns for a cycle-free graph.
type AnalysisResult struct {
	ParallelGroups      [][]string
	DependencyPaths     [][]string
	TaskDependencyPaths map[string][]string
	MaxDepth            int
	HasCycle            bool
}

// Analyzer holds the forward and reverse adjacency derived from the most
// recent Analyze call, so TransitiveDeps/Ready can be queried afterward
// without recomputation.
type Analyzer struct {
	order        []string
	dependencies map[string][]string // task_id -> its declared dependencies
	dependents   map[string][]string // task_id -> tasks that declare it as a dependency
}

// New returns an empty Analyzer; call Analyze to populate it.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze validates subtasks (keyed and ordered by Stage 1's normalized
// task ids) and returns the derived structural information, or an
// *engineerr.InvalidPlan if the graph has a cycle or a dangling dependency.
func (a *Analyzer) Analyze(order []string, subtasks map[string]*models.Subtask) (*AnalysisResult, error) {
	dependencies := make(map[string][]string, len(order))
	dependents := make(map[string][]string, len(order))
	known := make(map[string]bool, len(order))
	for _, id := range order {
		known[id] = true
	}
	for _, id := range order {
		deps := subtasks[id].Dependencies
		dependencies[id] = deps
		for _, dep := range deps {
			if !known[dep] {
				return nil, &engineerr.InvalidPlan{DanglingDependency: dep}
			}
			dependents[dep] = append(dependents[dep], id)
		}
	}

	a.order = order
	a.dependencies = dependencies
	a.dependents = dependents

	if cycle := detectCycle(order, dependents); cycle != nil {
		return nil, &engineerr.InvalidPlan{Cycle: cycle}
	}

	paths := extractPaths(order, dependencies, dependents)
	taskPaths := buildTaskDependencyPaths(paths)
	groups := computeParallelGroups(order, dependencies, dependents)
	maxDepth := calculateMaxDepth(order, dependencies, dependents)

	return &AnalysisResult{
		ParallelGroups:      groups,
		DependencyPaths:     paths,
		TaskDependencyPaths: taskPaths,
		MaxDepth:            maxDepth,
		HasCycle:            false,
	}, nil
}

// TransitiveDeps returns every ancestor of task_id (its dependencies,
// their dependencies, and so on), using the graph from the most recent
// Analyze call.
func (a *Analyzer) TransitiveDeps(taskID string) map[string]bool {
	seen := map[string]bool{}
	queue := append([]string{}, a.dependencies[taskID]...)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if seen[dep] {
			continue
		}
		seen[dep] = true
		queue = append(queue, a.dependencies[dep]...)
	}
	return seen
}

// Dependents returns the tasks that directly declare task_id as a
// dependency, from the most recent Analyze call.
func (a *Analyzer) Dependents(taskID string) []string {
	return a.dependents[taskID]
}

// Ready reports whether every dependency of task_id is present in
// completed.
func Ready(dependencies []string, completed map[string]bool) bool {
	for _, dep := range dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

const (
	white = 0
	gray  = 1
	black = 2
)

// detectCycle runs a three-color DFS over the reverse (dependents) graph,
// the same traversal direction the original analyzer uses. On finding a
// back edge it returns the path from the re-entered node back to itself;
// nil means the graph is acyclic.
func detectCycle(order []string, dependents map[string][]string) []string {
	color := make(map[string]int, len(order))
	for _, id := range order {
		color[id] = white
	}
	var stack []string
	var cyclePath []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		if color[node] == gray {
			// close the cycle: node already on the stack
			idx := -1
			for i, s := range stack {
				if s == node {
					idx = i
					break
				}
			}
			if idx >= 0 {
				cyclePath = append(append([]string{}, stack[idx:]...), node)
			} else {
				cyclePath = []string{node}
			}
			return true
		}
		if color[node] == black {
			return false
		}
		color[node] = gray
		stack = append(stack, node)
		for _, neighbor := range dependents[node] {
			if dfs(neighbor) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return false
	}

	for _, id := range order {
		if color[id] == white {
			if dfs(id) {
				return cyclePath
			}
		}
	}
	return nil
}

// extractPaths enumerates every leaf-to-root path (a leaf is a task no
// other task depends on) and deduplicates by exact sequence while
// preserving discovery order.
func extractPaths(order []string, dependencies, dependents map[string][]string) [][]string {
	var leaves []string
	for _, id := range order {
		if len(dependents[id]) == 0 {
			leaves = append(leaves, id)
		}
	}

	var all [][]string
	for _, leaf := range leaves {
		all = append(all, tracePathsToRoots(leaf, dependencies)...)
	}

	seen := map[string]bool{}
	var unique [][]string
	for _, p := range all {
		key := pathKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}

func pathKey(path []string) string {
	out := ""
	for _, s := range path {
		out += s + "\x00"
	}
	return out
}

func tracePathsToRoots(taskID string, dependencies map[string][]string) [][]string {
	deps := dependencies[taskID]
	if len(deps) == 0 {
		return [][]string{{taskID}}
	}
	var out [][]string
	for _, dep := range deps {
		for _, depPath := range tracePathsToRoots(dep, dependencies) {
			out = append(out, append(append([]string{}, depPath...), taskID))
		}
	}
	return out
}

// buildTaskDependencyPaths maps every task id to its canonical dependency
// path: the path itself when the task appears in exactly one, or the
// merge of all predecessors across every path it appears in (fan-in) —
// ordered by first discovery across those paths, with the task appended
// last.
func buildTaskDependencyPaths(paths [][]string) map[string][]string {
	taskToPaths := map[string][][]string{}
	for _, p := range paths {
		for _, id := range p {
			taskToPaths[id] = append(taskToPaths[id], p)
		}
	}

	result := map[string][]string{}
	for taskID, ps := range taskToPaths {
		if len(ps) == 1 {
			result[taskID] = ps[0]
			continue
		}
		predecessors := map[string]bool{}
		for _, p := range ps {
			idx := indexOf(p, taskID)
			for _, pre := range p[:idx] {
				predecessors[pre] = true
			}
		}
		var merged []string
		seen := map[string]bool{}
		for _, p := range ps {
			for _, id := range p {
				if predecessors[id] && !seen[id] {
					seen[id] = true
					merged = append(merged, id)
				}
			}
		}
		merged = append(merged, taskID)
		result[taskID] = merged
	}
	return result
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// computeParallelGroups runs Kahn's algorithm: successive layers of
// in-degree-zero nodes, each layer ordered by Stage 1's original ordinal
// so runs are reproducible.
func computeParallelGroups(order []string, dependencies, dependents map[string][]string) [][]string {
	ordinal := make(map[string]int, len(order))
	for i, id := range order {
		ordinal[id] = i
	}
	inDegree := make(map[string]int, len(order))
	for _, id := range order {
		inDegree[id] = len(dependencies[id])
	}
	remaining := make(map[string]bool, len(order))
	for _, id := range order {
		remaining[id] = true
	}

	var groups [][]string
	for len(remaining) > 0 {
		var ready []string
		for id := range remaining {
			if inDegree[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			break // unreachable once Analyze has rejected cycles
		}
		sort.Slice(ready, func(i, j int) bool { return ordinal[ready[i]] < ordinal[ready[j]] })
		groups = append(groups, ready)
		for _, id := range ready {
			delete(remaining, id)
			for _, dependent := range dependents[id] {
				if remaining[dependent] {
					inDegree[dependent]--
				}
			}
		}
	}
	return groups
}

// calculateMaxDepth does a BFS from the roots (tasks with no dependencies)
// forward through the dependents graph, each node's depth being one more
// than the max depth of its dependencies.
func calculateMaxDepth(order []string, dependencies, dependents map[string][]string) int {
	if len(order) == 0 {
		return 0
	}
	depth := map[string]int{}
	var queue []string
	for _, id := range order {
		if len(dependencies[id]) == 0 {
			depth[id] = 0
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dependent := range dependents[id] {
			allKnown := true
			maxDepDepth := -1
			for _, dep := range dependencies[dependent] {
				d, ok := depth[dep]
				if !ok {
					allKnown = false
					break
				}
				if d > maxDepDepth {
					maxDepDepth = d
				}
			}
			if allKnown {
				if _, already := depth[dependent]; !already {
					depth[dependent] = maxDepDepth + 1
					queue = append(queue, dependent)
				}
			}
		}
	}
	max := 0
	for _, d := range depth {
		if d > max {
			max = d
		}
	}
	return max
}
