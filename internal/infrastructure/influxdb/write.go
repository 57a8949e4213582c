package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementStateValues is the measurement name for state-value telemetry.
const measurementStateValues = "state_values"

// WriteValueMetric records a numeric state-value change.
//
// This is the primary telemetry method: every numeric (or boolean, mapped to
// 0/1 by the caller) state value flowing through the coordinator is recorded
// here. The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - objectID: The state object id (e.g., "hue.0.lamp.level")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteValueMetric("hue.0.lamp.level", 75)
func (c *Client) WriteValueMetric(objectID string, value float64) {
	c.WriteValueMetricAt(objectID, value, time.Now())
}

// WriteValueMetricAt records a numeric state-value change with an explicit
// timestamp, typically the platform-reported last-change time.
func (c *Client) WriteValueMetricAt(objectID string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementStateValues,
		map[string]string{
			"object_id": objectID,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the value-metric helpers.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
