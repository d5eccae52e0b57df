// Package bridge connects the hub runtime to the MQTT broker.
//
// Outbound, the bridge mirrors the hub onto the broker:
//   - state_changed events become retained canonical state on
//     rxhome/state/<entity_id> (removals clear the retained message)
//   - hub events are mirrored to rxhome/event/<event_type>
//   - time_changed becomes the 1Hz beacon on rxhome/system/time
//
// Inbound, the bridge accepts requests from the broker:
//   - rxhome/set/<entity_id> writes entity state into the store
//   - rxhome/call/<domain>/<service> invokes a registered service
//
// Inbound requests mint a fresh causal Context, so follow-up actions
// triggered by a broker message can be traced back to it.
//
// The bridge holds no state of its own beyond subscription bookkeeping;
// the hub's state store remains the single source of truth. On Start the
// current store contents are replayed as retained messages so the broker
// converges even after a hub restart.
package bridge
