package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateChange writes one numeric entity state sample.
//
// This is the primary method for streaming entity telemetry. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - entityID: Full entity id (e.g., "sensor.outdoor_temp")
//   - domain: The entity id's domain part, stored as a tag for queries
//   - value: The numeric state value
//   - timestamp: When the state changed (use the snapshot's LastUpdated)
//
// Example:
//
//	client.WriteStateChange("sensor.outdoor_temp", "sensor", 21.5, st.LastUpdated)
func (c *Client) WriteStateChange(entityID, domain string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"entity_id": entityID,
			"domain":    domain,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteAttributeMetric writes one numeric attribute sample for an entity.
//
// Used for secondary readings that ride along on a state snapshot, like
// brightness on a light or battery level on a sensor.
//
// Parameters:
//   - entityID: Full entity id
//   - attribute: Attribute name (e.g., "brightness", "battery")
//   - value: The numeric attribute value
//   - timestamp: When the snapshot was taken
func (c *Client) WriteAttributeMetric(entityID, attribute string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_attribute",
		map[string]string{
			"entity_id": entityID,
			"attribute": attribute,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteTimerDrift records how far a hub timer tick landed past its
// scheduled second. Fed from timer_out_of_sync events.
func (c *Client) WriteTimerDrift(seconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"timer_drift",
		nil,
		map[string]interface{}{
			"seconds": seconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hub-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
