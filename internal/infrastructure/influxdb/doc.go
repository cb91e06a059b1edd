// Package influxdb records dispatch and program timings in InfluxDB.
//
// It wraps the influxdb-client-go v2 library. Points are written through
// the non-blocking write API and batched according to batch_size and
// flush_interval in config.yaml.
//
// # Measurements
//
//	iot_dispatch  tags: device_id, command, outcome, error_kind
//	              fields: duration_ms, index, execution_id
//	iot_program   tags: outcome, steps, error_kind
//	              fields: completed, duration_ms, execution_id
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	observers = append(observers, influxdb.NewMetrics(client))
//
// Write failures are delivered asynchronously to the callback set with
// SetOnError and never affect a dispatch.
package influxdb
