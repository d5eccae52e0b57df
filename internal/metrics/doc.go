// Package metrics streams numeric hub telemetry into InfluxDB.
//
// A Streamer subscribes to state_changed and timer_out_of_sync events.
// Entity states that parse as numbers become entity_state points,
// numeric attributes become entity_attribute points, and timer drift
// becomes timer_drift points. Non-numeric states are skipped; the
// history recorder keeps the full record.
//
// Writes go through the batched non-blocking InfluxDB write API, so the
// listeners run inline on the hub loop without touching the network.
package metrics
