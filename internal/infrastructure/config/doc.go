// Package config loads the coordinator's YAML configuration.
//
// Every section has a default. MQTT, InfluxDB and the journal database
// start disabled, so a missing file yields a standalone coordinator that
// runs the demonstration programs and exits:
//
//	cfg, found, err := config.LoadOptional("configs/config.yaml")
//
// Load is the strict variant and fails when the file is absent.
//
// A handful of GRAYLOGIC_* environment variables override the file, mainly
// for secrets (GRAYLOGIC_MQTT_PASSWORD, GRAYLOGIC_INFLUXDB_TOKEN) and for
// container deployments (GRAYLOGIC_API_PORT, GRAYLOGIC_DATABASE_PATH).
// Validate runs after overrides are applied.
package config
