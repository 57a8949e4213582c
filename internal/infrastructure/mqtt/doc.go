// Package mqtt provides MQTT client connectivity for Visionary UI Core.
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
// Visionary UI uses MQTT as the bus between the home-automation platform
// adapter and the visualization backend. The broker decouples the backend
// from platform-specific subscription mechanics.
//
//	Platform Adapter ↔ MQTT Broker ↔ Visionary UI Core
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all entity events
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a state write command
//	topic := mqtt.Topics{}.CommandState("hue.0.lamp.on")
//	client.Publish(topic, []byte(`{"value":true}`), 1, false)
package mqtt
