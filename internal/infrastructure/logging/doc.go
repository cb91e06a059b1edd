// Package logging wraps log/slog with the coordinator's defaults.
//
// Every entry carries service and version fields. Output is JSON or text
// on stdout or stderr, chosen by the logging section of config.yaml:
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stdout"
//
// *Logger satisfies the small Logger interfaces declared by the iot, mqtt
// and history packages, so one value is passed to all of them:
//
//	logger := logging.New(cfg.Logging, version)
//	svc := iot.NewService(iot.Options{Logger: logger})
package logging
