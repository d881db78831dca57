package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}
