package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_EmitProcessClean(t *testing.T) {
	m := NewMemory()
	ev := Event{Source: "internal", Object: "lld_rule", ID: 42, Timestamp: time.Now(), State: "normal"}

	require.NoError(t, m.Emit(context.Background(), ev))
	require.NoError(t, m.ProcessEvents(context.Background()))
	require.NoError(t, m.CleanEvents(context.Background()))

	require.Len(t, m.Emitted, 1)
	assert.Equal(t, int64(42), m.Emitted[0].ID)
	assert.Equal(t, 1, m.ProcessCalls)
	assert.Equal(t, 1, m.CleanCalls)
}
