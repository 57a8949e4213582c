// Package influxdb provides optional state-value telemetry for Visionary UI Core.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring.
//
// # Purpose
//
// Every numeric state value flowing through the coordinator can be recorded
// as a time-series point, giving the UI history charts without the core
// holding any history itself. The integration is config-gated and entirely
// optional; the core works identically without it.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteValueMetric("hue.0.lamp.level", 75)
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
