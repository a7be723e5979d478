// Package artifacts is the content-addressed write path for task output:
// one file per publish, named by a per-agent sequence number and written
// atomically (temp file + fsync + rename), plus the manifest that hands
// out those sequence numbers and the schema check every payload passes
// before it touches disk.
//
// Grounded on the original file-based bus (src/bus/file_bus.py,
// manifest.py, schema.py): tempfile-in-same-dir + os.fsync + atomic
// rename for write_atomic, a meta.json manifest incrementing next_id per
// agent directory, and a {data, metadata} envelope whose row_count must
// match len(data).
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

const schemaVersion = "1.0"

// Bus roots all artifact writes at a workspace directory, one
// subdirectory per agent, persistent across every run that agent ever
// takes part in.
type Bus struct {
	root string
	mu   sync.Mutex // serializes manifest increment-and-write across agents sharing one Bus
}

// New returns a Bus rooted at workspacePath/agents.
func New(workspacePath string) *Bus {
	return &Bus{root: filepath.Join(workspacePath, "agents")}
}

func (b *Bus) agentDir(agentID string) string {
	return filepath.Join(b.root, agentID)
}

func (b *Bus) manifestPath(agentID string) string {
	return filepath.Join(b.agentDir(agentID), "meta.json")
}

type manifest struct {
	NextID      int       `json:"next_id"`
	LastUpdated time.Time `json:"last_updated"`
	TotalRuns   int       `json:"total_runs"`
}

// Publish validates data against the output envelope (data + metadata
// with a row_count equal to len(data)) and writes it atomically to the
// next sequence-numbered file under the agent's own directory, which
// persists across runs rather than being scoped to runID — runID is
// carried in the metadata only, for traceability back to the run that
// produced this artifact. It returns the Artifact describing where the
// payload landed.
func (b *Bus) Publish(runID, agentID string, data []any, query string) (*models.Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	payload := models.ArtifactPayload{
		Data: data,
		Metadata: models.ArtifactMetadata{
			Query:     query,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RowCount:  len(data),
			Agent:     agentID,
			Version:   schemaVersion,
			RunID:     runID,
		},
	}
	if err := validate(payload); err != nil {
		return nil, &engineerr.ArtifactPublishError{AgentID: agentID, Cause: err}
	}

	seq, err := b.nextSequence(agentID)
	if err != nil {
		return nil, &engineerr.ArtifactPublishError{AgentID: agentID, Cause: err}
	}

	filename := fmt.Sprintf("%06d.json", seq)
	dir := filepath.Join(b.agentDir(agentID), "out")
	path := filepath.Join(dir, filename)

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, &engineerr.ArtifactPublishError{AgentID: agentID, Cause: err}
	}
	if err := writeAtomic(path, body); err != nil {
		return nil, &engineerr.ArtifactPublishError{AgentID: agentID, Cause: err}
	}

	return &models.Artifact{AgentID: agentID, SequenceNumber: seq, Path: path}, nil
}

// Read loads a previously published artifact payload back from disk.
func (b *Bus) Read(path string) (*models.ArtifactPayload, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload models.ArtifactPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func validate(payload models.ArtifactPayload) error {
	if payload.Metadata.RowCount != len(payload.Data) {
		return fmt.Errorf("row_count mismatch: metadata says %d, actual is %d", payload.Metadata.RowCount, len(payload.Data))
	}
	if payload.Metadata.Agent == "" {
		return fmt.Errorf("missing required metadata field: agent")
	}
	if payload.Metadata.Version == "" {
		return fmt.Errorf("missing required metadata field: version")
	}
	return nil
}

func (b *Bus) nextSequence(agentID string) (int, error) {
	path := b.manifestPath(agentID)
	if err := os.MkdirAll(b.agentDir(agentID), 0o755); err != nil {
		return 0, err
	}

	m, err := readManifest(path)
	if os.IsNotExist(err) {
		m = &manifest{NextID: 1}
	} else if err != nil {
		return 0, err
	}

	allocated := m.NextID
	m.NextID++
	m.TotalRuns++
	m.LastUpdated = time.Now().UTC()

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, body); err != nil {
		return 0, err
	}
	return allocated, nil
}

func readManifest(path string) (*manifest, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// writeAtomic writes body to a temp file in path's directory, fsyncs it,
// then renames it into place — the same temp+fsync+rename sequence the
// write path mirrors, so a crash mid-write never leaves a torn file at
// the final name.
func writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
