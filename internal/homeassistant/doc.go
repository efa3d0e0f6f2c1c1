// Package homeassistant is the upstream entity source for the Matter bridge.
//
// It has two halves:
//
//   - Hub keeps the latest Snapshot of every entity and fans change
//     notifications out to subscribers. Notifications for one entity are
//     delivered serially in publish order, each carrying a per-entity
//     sequence number so consumers can reject stale data. Different
//     entities dispatch independently.
//   - Client speaks the Home Assistant WebSocket API. It authenticates,
//     subscribes to state_changed events, loads the full state list with
//     get_states, and feeds everything into a Sink (normally the Hub).
//     Lost connections are retried with exponential backoff and a full
//     resync on every reconnect.
//
// Home Assistant attributes are loosely typed. Snapshots pass through
// Schema normalisation at this boundary so that consumers see a fixed
// shape: known attributes have a known Go type or are absent.
//
// # Usage
//
//	hub := homeassistant.NewHub()
//	client := homeassistant.NewClient(homeassistant.Config{
//	    URL:         "http://homeassistant.local:8123",
//	    AccessToken: token,
//	}, hub)
//	go client.Run(ctx)
//
//	sub := hub.Subscribe("light.kitchen", func(s homeassistant.Snapshot) {
//	    log.Println(s.State)
//	})
//	defer sub.Cancel()
package homeassistant
