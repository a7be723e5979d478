package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_SequentialNaming(t *testing.T) {
	bus := New(t.TempDir())

	a1, err := bus.Publish("run1", "market_data_agent", []any{map[string]any{"symbol": "AAPL"}}, "select * from markets")
	require.NoError(t, err)
	assert.Equal(t, 1, a1.SequenceNumber)
	assert.Contains(t, a1.Path, "000001.json")

	a2, err := bus.Publish("run1", "market_data_agent", []any{}, "select * from markets")
	require.NoError(t, err)
	assert.Equal(t, 2, a2.SequenceNumber)
	assert.Contains(t, a2.Path, "000002.json")
}

func TestPublish_SeparateAgentsIndependentSequences(t *testing.T) {
	bus := New(t.TempDir())

	a1, err := bus.Publish("run1", "market_data_agent", []any{1}, "q")
	require.NoError(t, err)
	b1, err := bus.Publish("run1", "polymarket_agent", []any{1}, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, a1.SequenceNumber)
	assert.Equal(t, 1, b1.SequenceNumber)
}

func TestPublish_RoundTrip(t *testing.T) {
	bus := New(t.TempDir())
	data := []any{map[string]any{"symbol": "AAPL", "price": 190.5}}

	art, err := bus.Publish("run1", "market_data_agent", data, "select * from markets limit 1")
	require.NoError(t, err)

	payload, err := bus.Read(art.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, payload.Metadata.RowCount)
	assert.Equal(t, "market_data_agent", payload.Metadata.Agent)
	assert.Len(t, payload.Data, 1)
}

func TestPublish_SequenceAcrossRunsPersists(t *testing.T) {
	bus := New(t.TempDir())

	a1, err := bus.Publish("run1", "market_data_agent", []any{1}, "q")
	require.NoError(t, err)
	a2, err := bus.Publish("run2", "market_data_agent", []any{1}, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, a1.SequenceNumber)
	assert.Equal(t, 2, a2.SequenceNumber, "sequence numbers are per-agent, not per-run")

	payload, err := bus.Read(a2.Path)
	require.NoError(t, err)
	assert.Equal(t, "run2", payload.Metadata.RunID)
}

func TestPublish_AtomicityAgainstConcurrentAgents(t *testing.T) {
	bus := New(t.TempDir())
	done := make(chan int, 10)
	for i := 0; i < 10; i++ {
		go func() {
			art, err := bus.Publish("run1", "web_agent", []any{1}, "q")
			require.NoError(t, err)
			done <- art.SequenceNumber
		}()
	}
	seen := map[int]bool{}
	for i := 0; i < 10; i++ {
		seq := <-done
		assert.False(t, seen[seq], "sequence number %d was allocated twice", seq)
		seen[seq] = true
	}
}
