package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_Lifecycle(t *testing.T) {
	o, err := New("dreamforge-test")
	require.NoError(t, err)
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "interpret")
	assert.NotNil(t, span)
	span.End()

	assert.NotPanics(t, func() {
		o.RecordJobProcessed(ctx, "interpret-brief", "completed")
		o.RecordJobDuration(ctx, "interpret-brief", 25*time.Millisecond, "completed")
	})
}

func TestObservability_NilSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		_, span := o.StartSpan(context.Background(), "noop")
		span.End()
		o.RecordJobProcessed(context.Background(), "x", "failed")
		o.Shutdown()
	})
}
