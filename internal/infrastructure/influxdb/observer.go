package influxdb

import (
	"context"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// MetricsWriter is the part of Client the observer needs.
type MetricsWriter interface {
	WriteDispatch(ev iot.DispatchEvent)
	WriteProgram(ev iot.ProgramEvent)
}

// Metrics is an iot.Observer that records dispatch and program timings.
type Metrics struct {
	w MetricsWriter
}

// NewMetrics creates an observer writing through w.
func NewMetrics(w MetricsWriter) *Metrics {
	return &Metrics{w: w}
}

// DispatchCompleted implements iot.Observer.
func (m *Metrics) DispatchCompleted(_ context.Context, ev iot.DispatchEvent) {
	m.w.WriteDispatch(ev)
}

// ProgramStarted implements iot.Observer. Only finished runs are recorded.
func (m *Metrics) ProgramStarted(context.Context, iot.ProgramEvent) {}

// ProgramCompleted implements iot.Observer.
func (m *Metrics) ProgramCompleted(_ context.Context, ev iot.ProgramEvent) {
	m.w.WriteProgram(ev)
}
