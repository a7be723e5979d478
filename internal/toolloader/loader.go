// Package toolloader resolves which ToolDescriptors a set of agents may
// use and caches the lookups, so Stage 2 (which runs once per dependency
// path) never re-walks the full tool registry for agents it already
// resolved in this process.
//
// Grounded on the original ToolLoader (lazy per-agent tool discovery with
// an AGENT_TOOL_MAP allow-list and a loaded-tools cache), adapted onto
// tools.Registry for lookup and hashicorp/golang-lru/v2 for the cache (see
// DESIGN.md for why the original's bare dict cache became a real LRU
// here: a long-lived server process resolving many distinct runs should
// not grow that cache without bound).
package toolloader

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

// Loader resolves tool descriptors for agents against a fixed allow-list
// and caches the resolutions.
type Loader struct {
	allowList map[string][]string // agent_id -> tool_ids it may use
	tools     map[string]models.ToolDescriptor
	cache     *lru.Cache[string, models.ToolDescriptor]
}

// New builds a Loader over tools (keyed by ToolID) and an agent_id ->
// allowed tool_ids map. cacheSize bounds the per-process lookup cache.
func New(tools []models.ToolDescriptor, allowList map[string][]string, cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, models.ToolDescriptor](cacheSize)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.ToolDescriptor, len(tools))
	for _, t := range tools {
		byID[t.ToolID] = t
	}
	return &Loader{allowList: allowList, tools: byID, cache: cache}, nil
}

// ForAgents returns the union of tool descriptors available to agentIDs,
// deduplicated and in a stable order.
func (l *Loader) ForAgents(agentIDs []string) []models.ToolDescriptor {
	seen := map[string]bool{}
	var out []models.ToolDescriptor
	for _, agentID := range agentIDs {
		for _, toolID := range l.allowList[agentID] {
			if seen[toolID] {
				continue
			}
			seen[toolID] = true
			if desc, ok := l.Load(toolID); ok {
				out = append(out, desc)
			}
		}
	}
	return out
}

// Load resolves a single tool by id, consulting the cache first.
func (l *Loader) Load(toolID string) (models.ToolDescriptor, bool) {
	if desc, ok := l.cache.Get(toolID); ok {
		return desc, true
	}
	desc, ok := l.tools[toolID]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	l.cache.Add(toolID, desc)
	return desc, true
}

// ToolsForAgent returns the allow-listed tool ids for one agent, without
// resolving descriptors.
func (l *Loader) ToolsForAgent(agentID string) []string {
	return l.allowList[agentID]
}

// Authorize returns an *engineerr.UnauthorizedTool if agentID is not
// allowed to invoke toolID, or *engineerr.UnknownTool if toolID has no
// registered descriptor at all.
func (l *Loader) Authorize(agentID, toolID string) error {
	if _, ok := l.tools[toolID]; !ok {
		return &engineerr.UnknownTool{ToolID: toolID}
	}
	for _, allowed := range l.allowList[agentID] {
		if allowed == toolID {
			return nil
		}
	}
	return &engineerr.UnauthorizedTool{AgentID: agentID, ToolID: toolID}
}
