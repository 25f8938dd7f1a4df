// Package mqtt provides MQTT client connectivity for tunerd.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is optional. When enabled, the tuner bridge publishes retained
// device state and accepts override commands, so home-automation systems
// can follow tuner lifecycle without polling the HTTP API.
//
//	tuner.Manager → bridge → MQTT Broker → subscribers
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllTunerCommands("hdhomerun"), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
