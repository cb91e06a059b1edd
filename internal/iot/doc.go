// Package iot provides the device registry, message dispatch and program
// execution engine of the Gray Logic IoT coordinator.
//
// # Architecture
//
//	┌──────────────┐   Register (parallel)    ┌──────────────┐
//	│   Service    │─────────────────────────▶│   Registry   │
//	│ (service.go) │                          │(registry.go) │
//	└──────┬───────┘                          └──────▲───────┘
//	       │ Run (parallel across programs)          │ Resolve
//	       ▼                                         │
//	┌──────────────┐  Dispatch (sequential)   ┌──────┴───────┐   Accept
//	│    Runner    │─────────────────────────▶│  Dispatcher  │──────────▶ Device
//	│ (runner.go)  │                          │(dispatcher.go│
//	└──────────────┘                          └──────────────┘
//
// # Key Types
//
//   - Device: capability interface implemented by every device variant
//   - Message: an addressed command (target, kind, optional payload)
//   - Program: an ordered sequence of messages
//   - DispatchError / ProgramError: typed failures, unwrap to sentinels
//   - Observer: sink for dispatch and program events (journal, MQTT, metrics)
//
// # Usage
//
//	svc := iot.NewService(iot.Options{Logger: log})
//	ids, err := svc.RegisterDevices(ctx, devices.NewHueLight(), devices.NewSmartSpeaker())
//	if err != nil {
//	    return err
//	}
//	light, speaker := ids[0], ids[1]
//
//	results := svc.RunPrograms(ctx,
//	    iot.Program{
//	        iot.NewMessage(light, iot.CommandSwitchOn),
//	        iot.NewMessage(speaker, iot.CommandSwitchOn),
//	    },
//	    iot.Program{
//	        iot.NewMessageWithPayload(speaker, iot.CommandPlaySong, "track-1"),
//	    },
//	)
//
// # Failure Semantics
//
// Dispatch never retries. A program aborts on its first failing message and
// returns a *ProgramError with the zero-based index of that message;
// earlier messages are not rolled back. Programs started together by
// RunPrograms fail independently.
//
// # Thread Safety
//
// Registry, Dispatcher, Runner and Service are safe for concurrent use.
// Devices guard their own state.
package iot
