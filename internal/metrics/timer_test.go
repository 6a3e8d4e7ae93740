package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	require.GreaterOrEqual(t, timer.Duration(), 10*time.Millisecond)
}

func TestTimerObserveDuration(t *testing.T) {
	timer := NewTimer()
	timer.ObserveDuration(RenderDuration)
}
