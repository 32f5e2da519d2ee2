package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 1/64 of a second is exact in binary floating point.
const testFrameSeconds = 0.015625

func TestMetricsAverageAfterWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT-1; i++ {
		m.Update(testFrameSeconds)
	}
	assert.Zero(t, m.FrameTime())

	m.Update(testFrameSeconds)
	assert.InDelta(t, 15.625, m.FrameTime(), 1e-9)
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 64; i++ {
		m.Update(testFrameSeconds)
	}
	assert.Zero(t, m.FPS())

	m.Update(testFrameSeconds)
	fps, avg := m.Frame()
	assert.Equal(t, float64(64), fps)
	assert.InDelta(t, 15.625, avg, 1e-9)
}
