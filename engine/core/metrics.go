package core

import "github.com/spaghettifunk/trigon/engine/containers"

const AVG_COUNT = 30

// Metrics keeps a rolling frame time average over the last AVG_COUNT frames
// and the frames rendered over the last full second.
type Metrics struct {
	msTimes            *containers.RingQueue[float64]
	msSum              float64
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		msTimes: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// Update records one frame that took frameElapsedTime seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	if m.msTimes.IsFull() {
		oldest, _ := m.msTimes.Dequeue()
		m.msSum -= oldest
	}
	_ = m.msTimes.Enqueue(frameMS)
	m.msSum += frameMS
	m.MSavg = m.msSum / float64(m.msTimes.Len())

	// Count all Frames.
	m.Frames++

	m.AccumulatedFrameMS += frameMS
	if m.AccumulatedFrameMS >= 1000 {
		m.FPS = float64(m.Frames)
		m.AccumulatedFrameMS -= 1000
		m.Frames = 0
	}
}

func (m *Metrics) FPSValue() float64 {
	return m.FPS
}

func (m *Metrics) FrameTime() float64 {
	return m.MSavg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.FPS, m.MSavg
}
