package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledInstallsNoopProvider(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	tracer := Tracer("depgraph-test")
	_, span := tracer.Start(context.Background(), "noop-span")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_ShutdownOnZeroValueIsSafe(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
