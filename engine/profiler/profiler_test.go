package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	var out bytes.Buffer
	p := NewProfiler(
		WithClock(clock.now),
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&out, nil))),
	)

	frames := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond}
	for _, d := range frames[:3] {
		clock.advance(d)
		require.False(t, p.Tick())
	}
	assert.Empty(t, out.String())

	clock.advance(frames[3] + 200*time.Millisecond)
	require.True(t, p.Tick())

	s := p.Last()
	assert.Equal(t, 4, s.Frames)
	assert.InDelta(t, 4.0, s.FPS, 1e-9)
	assert.Equal(t, 100*time.Millisecond, s.MinFrame)
	assert.Equal(t, 400*time.Millisecond, s.MaxFrame)
	assert.Contains(t, out.String(), "fps=4")

	clock.advance(50 * time.Millisecond)
	assert.False(t, p.Tick(), "a new window starts after reporting")
}
