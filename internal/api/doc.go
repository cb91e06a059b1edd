// Package api implements the HTTP REST API and WebSocket event stream for
// the IoT coordinator.
//
// # Endpoints
//
//	GET  /api/v1/health                  liveness, site, device and client counts
//	GET  /api/v1/devices                 registered devices (?type=, ?capability=)
//	GET  /api/v1/devices/stats           registry statistics
//	GET  /api/v1/devices/{id}            one device
//	POST /api/v1/devices/{id}/commands   dispatch one command
//	POST /api/v1/programs                run a program and wait for the outcome
//	GET  /api/v1/executions              journaled program runs (?status=, ?limit=, ?offset=)
//	GET  /api/v1/executions/{id}         one run with its dispatch records
//	GET  /api/v1/ws                      event stream
//
// Dispatch failures are reported with their error kind as the error code:
// unknown_device (404), unsupported_command (422), device_execution (502)
// and cancelled (503).
//
// # WebSocket
//
// Clients subscribe to event channels:
//
//	{"type": "subscribe", "id": "1", "payload": {"channels": ["dispatch.completed"]}}
//
// Valid channels are dispatch.completed, program.started and
// program.completed; "*" subscribes to all of them.
//
// The Hub is an iot.Observer and must be registered with the service for
// events to flow.
//
// # Graceful Degradation
//
// The execution endpoints answer 503 when no history repository is
// configured. Everything else works without persistence.
package api
