// Package runner turns every recorded task output for a run into one
// consolidated answer: bucket by agent, compute summary statistics,
// synthesize an answer (via an LLM collaborator when configured,
// otherwise a deterministic template), and optionally validate it.
//
// Grounded on runner.py's consolidate() pipeline (get_all_task_outputs ->
// bucket by agent_name -> summary stats -> _generate_answer's bulleted
// template -> optional AnswerValidator call).
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/providers/llm"
	"github.com/aj002fr/depgraph/internal/taskstore"
)

// Runner consolidates task outputs into a ConsolidatedResult.
type Runner struct {
	Store  *taskstore.Store
	Client llm.Client // optional: nil falls back to the templated answer
}

// New builds a Runner over a task store, optionally with an LLM
// collaborator for answer synthesis and validation.
func New(store *taskstore.Store, client llm.Client) *Runner {
	return &Runner{Store: store, Client: client}
}

// Consolidate builds the final ConsolidatedResult for runID.
func (r *Runner) Consolidate(ctx context.Context, runID, query string, skipValidation bool) (*models.ConsolidatedResult, error) {
	outputs, err := r.Store.GetAllOutputs(ctx, runID)
	if err != nil {
		return nil, err
	}

	dataByAgent := bucketByAgent(outputs)
	summaryStats := computeSummaryStats(dataByAgent)

	answer := r.generateAnswer(ctx, query, dataByAgent, summaryStats)

	result := &models.ConsolidatedResult{
		Query:        query,
		AnswerText:   answer,
		DataByAgent:  dataByAgent,
		SummaryStats: summaryStats,
	}

	if !skipValidation && len(outputs) > 0 && r.Client != nil {
		validation := r.validate(ctx, query, answer, outputs)
		result.Validation = validation
	}

	return result, nil
}

// bucketByAgent groups every task's output by agent, unwrapping the
// {data, metadata} agent-invocation contract and flattening list-shaped
// "data" to its individual records so summary stats see one row per
// record rather than one row per task.
func bucketByAgent(outputs []models.TaskOutput) map[string][]any {
	byAgent := map[string][]any{}
	for _, o := range outputs {
		var parsed any
		if err := json.Unmarshal([]byte(o.OutputJSON), &parsed); err != nil {
			parsed = o.OutputJSON
		}
		if obj, ok := parsed.(map[string]any); ok {
			if data, ok := obj["data"]; ok {
				parsed = data
			}
		}
		if list, ok := parsed.([]any); ok {
			byAgent[o.AgentID] = append(byAgent[o.AgentID], list...)
		} else {
			byAgent[o.AgentID] = append(byAgent[o.AgentID], parsed)
		}
	}
	return byAgent
}

// computeSummaryStats mirrors runner.py's _calculate_summary_stats: a row
// count per agent plus, for recognizable numeric fields, min/max/avg.
func computeSummaryStats(dataByAgent map[string][]any) map[string]any {
	stats := map[string]any{}
	for agent, records := range dataByAgent {
		agentStats := map[string]any{"row_count": len(records)}

		var prices []float64
		var volumes []float64
		var probabilities []float64
		for _, rec := range records {
			m, ok := rec.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := numeric(m["price"]); ok {
				prices = append(prices, p)
			}
			if v, ok := numeric(m["volume"]); ok {
				volumes = append(volumes, v)
			}
			if p, ok := numeric(m["probability"]); ok {
				probabilities = append(probabilities, p)
			}
		}
		if len(prices) > 0 {
			agentStats["min_price"], agentStats["max_price"], agentStats["avg_price"] = minMaxAvg(prices)
		}
		if len(volumes) > 0 {
			_, _, avg := minMaxAvg(volumes)
			agentStats["total_volume"] = sum(volumes)
			agentStats["avg_volume"] = avg
		}
		if len(probabilities) > 0 {
			_, _, avg := minMaxAvg(probabilities)
			agentStats["avg_probability"] = avg
		}
		stats[agent] = agentStats
	}
	return stats
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func minMaxAvg(xs []float64) (min, max, avg float64) {
	min, max = xs[0], xs[0]
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	avg = sum(xs) / float64(len(xs))
	return
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

func (r *Runner) generateAnswer(ctx context.Context, query string, dataByAgent map[string][]any, summaryStats map[string]any) string {
	if r.Client != nil {
		prompt := buildAnswerPrompt(query, dataByAgent, summaryStats)
		if text, err := r.Client.GenerateText(ctx, prompt); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return templatedAnswer(query, dataByAgent, summaryStats)
}

func buildAnswerPrompt(query string, dataByAgent map[string][]any, summaryStats map[string]any) string {
	statsJSON, _ := json.Marshal(summaryStats)
	var agents []string
	for a := range dataByAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	return fmt.Sprintf(`Answer the query below using the collected agent outputs. Be concise and factual.

Query: %s
Agents consulted: %v
Summary statistics: %s`, query, agents, string(statsJSON))
}

func templatedAnswer(query string, dataByAgent map[string][]any, summaryStats map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)

	var agents []string
	for a := range dataByAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	for _, agent := range agents {
		records := dataByAgent[agent]
		stats, _ := summaryStats[agent].(map[string]any)
		fmt.Fprintf(&b, "\n%s:\n  - %d records\n", agent, len(records))
		if minP, ok := stats["min_price"]; ok {
			fmt.Fprintf(&b, "  - price range: %.2f - %.2f, avg %.2f\n", minP, stats["max_price"], stats["avg_price"])
		}
		if tv, ok := stats["total_volume"]; ok {
			fmt.Fprintf(&b, "  - total volume: %.0f, avg volume: %.0f\n", tv, stats["avg_volume"])
		}
		if avgProb, ok := stats["avg_probability"]; ok {
			fmt.Fprintf(&b, "  - avg probability: %.2f\n", avgProb)
		}
	}

	if len(agents) > 0 {
		fmt.Fprintf(&b, "\nAgents used: %s\n", strings.Join(agents, ", "))
	}
	return b.String()
}

func (r *Runner) validate(ctx context.Context, query, answer string, outputs []models.TaskOutput) *models.Validation {
	prompt := fmt.Sprintf("Query: %s\nAnswer: %s\nDoes the answer follow from %d collected outputs? List any issues.", query, answer, len(outputs))
	valid, detail, err := r.Client.Verify(ctx, prompt, answer)
	if err != nil {
		return &models.Validation{Valid: false, Issues: []string{err.Error()}}
	}
	v := &models.Validation{Valid: valid, CompletenessScore: completenessScore(valid, len(outputs))}
	if detail != "" {
		v.Issues = []string{detail}
	}
	return v
}

func completenessScore(valid bool, outputCount int) float64 {
	if outputCount == 0 {
		return 0
	}
	if valid {
		return 1
	}
	return 0.5
}
