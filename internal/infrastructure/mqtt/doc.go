// Package mqtt connects the IoT coordinator to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and resubscription
//   - Last Will and Testament (LWT) on graylogic/iot/status
//   - Publishing dispatch and program events (EventPublisher)
//   - Dispatching commands received on graylogic/iot/command/{device_id}
//     (CommandListener)
//
// # Topics
//
//	graylogic/iot/status                 retained online/offline status
//	graylogic/iot/dispatch/{device_id}   dispatch.completed events
//	graylogic/iot/program/{exec_id}      program.started and program.completed
//	graylogic/iot/command/{device_id}    inbound {"kind": ..., "payload": ...}
//
// The broker is optional. Event publishing failures are logged and never
// affect the outcome of a dispatch.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	observers = append(observers, mqtt.NewEventPublisher(client))
//
//	listener := mqtt.NewCommandListener(client, svc.Dispatcher(), byte(cfg.MQTT.QoS))
//	if err := listener.Start(ctx); err != nil {
//	    return err
//	}
package mqtt
