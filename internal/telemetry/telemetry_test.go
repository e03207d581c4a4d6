package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall_DisabledIsInert(t *testing.T) {
	p, err := Install(false, nil)
	require.NoError(t, err)
	_, span := Tracer().Start(context.Background(), "test.span")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestInstall_EnabledWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := Install(true, &buf)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test.span")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "test.span")
}
