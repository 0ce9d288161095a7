package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WindowStatistics(t *testing.T) {
	r := NewRecorder(time.Minute)

	r.Observe("accept", 10*time.Millisecond, nil)
	r.Observe("accept", 20*time.Millisecond, nil)
	r.Observe("accept", 30*time.Millisecond, errors.New("boom"))

	snap := r.Snapshot()
	stats, ok := snap["accept"]
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(1), stats.Errors)
	assert.InDelta(t, 20.0, stats.AvgMillis, 1e-9)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.Equal(t, 30*time.Millisecond, stats.Max)
	assert.InDelta(t, 1.0/3.0, stats.ErrorRate(), 1e-9)
}

func TestRecorder_WelfordMeanStability(t *testing.T) {
	r := NewRecorder(time.Minute)
	for i := 0; i < 1000; i++ {
		r.Observe("get", 5*time.Millisecond, nil)
	}
	stats := r.Snapshot()["get"]
	assert.InDelta(t, 5.0, stats.AvgMillis, 1e-9)
	assert.Equal(t, 5*time.Millisecond, stats.Min)
	assert.Equal(t, 5*time.Millisecond, stats.Max)
}

func TestRecorder_OperationsTrackedIndependently(t *testing.T) {
	r := NewRecorder(time.Minute)
	r.Observe("accept", 10*time.Millisecond, nil)
	r.Observe("cancel", 40*time.Millisecond, nil)

	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap["accept"].Count)
	assert.Equal(t, int64(1), snap["cancel"].Count)
	assert.Equal(t, 40*time.Millisecond, snap["cancel"].Max)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder(time.Minute)
	r.Observe("accept", 10*time.Millisecond, nil)
	r.Reset()
	assert.Empty(t, r.Snapshot())

	r.Observe("accept", 7*time.Millisecond, nil)
	stats := r.Snapshot()["accept"]
	assert.Equal(t, int64(1), stats.Count)
	assert.Equal(t, 7*time.Millisecond, stats.Min)
}

func TestRecorder_ZeroWindowFallsBack(t *testing.T) {
	r := NewRecorder(0)
	assert.Equal(t, 60*time.Second, r.window)
}
