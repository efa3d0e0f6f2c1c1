// Package bridge hosts one Matter endpoint per bridged Home Assistant
// entity.
//
// It sits between the entity Hub and the sync core: it decides which
// entities are bridged (Filter), which capabilities each one carries
// (CapabilitiesFor), gives every entity a stable endpoint number
// (EndpointRepository) and tears endpoints down when their entity
// disappears.
//
// Attribute changes leave the sync path through the Reporter, which
// queues them and fans them out to MQTT, InfluxDB and the SQLite
// attribute history from a single goroutine, so a slow broker or disk
// never stalls a projection.
//
//	hub ──Watch──▶ Bridge ──NewEndpoint/Activate──▶ behavior.Endpoint
//	                                                  │ OnChange
//	                                                  ▼
//	                              Reporter queue ──▶ MQTT / InfluxDB / history
package bridge
