package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Measurement names.
const (
	MeasurementDispatch = "iot_dispatch"
	MeasurementProgram  = "iot_program"
)

// WriteDispatch records one dispatch outcome.
//
// Tags: device_id, command, outcome, error_kind (failures only).
// Fields: duration_ms, index, execution_id (program steps only).
func (c *Client) WriteDispatch(ev iot.DispatchEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(dispatchPoint(ev))
}

// WriteProgram records one finished program run.
//
// Tags: outcome, steps, error_kind (failures only).
// Fields: completed, duration_ms, execution_id.
func (c *Client) WriteProgram(ev iot.ProgramEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(programPoint(ev))
}

func dispatchPoint(ev iot.DispatchEvent) *write.Point {
	tags := map[string]string{
		"device_id": string(ev.Message.Target),
		"command":   string(ev.Message.Kind),
		"outcome":   outcome(ev.Err),
	}
	if ev.Err != nil {
		tags["error_kind"] = iot.ErrorKind(ev.Err)
	}

	fields := map[string]any{
		"duration_ms": durationMS(ev.Duration),
		"index":       ev.Index,
	}
	if ev.ExecutionID != "" {
		// Execution IDs are unbounded, so they are a field rather than a tag.
		fields["execution_id"] = ev.ExecutionID
	}

	return write.NewPoint(MeasurementDispatch, tags, fields, ev.StartedAt)
}

func programPoint(ev iot.ProgramEvent) *write.Point {
	tags := map[string]string{
		"outcome": outcome(ev.Err),
		"steps":   strconv.Itoa(ev.Steps),
	}
	if ev.Err != nil {
		tags["error_kind"] = iot.ErrorKind(ev.Err)
	}

	fields := map[string]any{
		"completed":    ev.Completed,
		"duration_ms":  durationMS(ev.Duration),
		"execution_id": ev.ExecutionID,
	}

	return write.NewPoint(MeasurementProgram, tags, fields, ev.StartedAt)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
