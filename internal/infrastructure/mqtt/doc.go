// Package mqtt provides MQTT client connectivity for the RX Home hub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// RX Home uses MQTT as its external message surface. The hub publishes
// retained entity state and mirrored events, and accepts state writes
// and service invocations from other systems on the broker.
//
//	RX Home Hub ↔ MQTT Broker ↔ Dashboards, Bridges, Integrations
//
// Topic layout:
//
//	rxhome/state/<entity_id>        retained canonical state (hub publishes)
//	rxhome/set/<entity_id>          external state writes (hub subscribes)
//	rxhome/call/<domain>/<service>  service invocations (hub subscribes)
//	rxhome/event/<event_type>       mirrored hub events (hub publishes)
//	rxhome/system/status            online/offline status with LWT
//	rxhome/system/time              1Hz time beacon
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all entity write requests
//	err = client.Subscribe(mqtt.Topics{}.AllEntitySets(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained entity state
//	topic := mqtt.Topics{}.EntityState("light.kitchen")
//	client.PublishRetained(topic, stateJSON)
package mqtt
