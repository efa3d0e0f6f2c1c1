// Package mqtt publishes the bridge's attribute state to an MQTT broker.
//
// Every attribute change applied on an endpoint is reported as a retained
// JSON value, so any MQTT consumer can follow the Matter-shaped view of
// Home Assistant without speaking Matter:
//
//	matterhub/endpoint/{number}/{cluster}/{attribute}   retained JSON value
//	matterhub/endpoint/{number}/availability            "online" | "offline"
//	matterhub/system/status                             bridge status + LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishAttribute(3, "on_off", "onOff", true)
//
// The client reconnects on its own. Register SetOnConnect to republish
// retained state after the broker comes back.
package mqtt
