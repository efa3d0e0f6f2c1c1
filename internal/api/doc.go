// Package api implements the read-only HTTP API of the Matter hub.
//
// This package provides:
//   - Health reporting for the bridge and its infrastructure (database,
//     MQTT, InfluxDB, Home Assistant connection)
//   - Listing of bridged endpoints and their live cluster attributes
//   - Per-endpoint attribute history from the SQLite history table
//   - Entity lookup explaining whether and how an entity is bridged
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support
//
// # Architecture
//
// The server never mutates bridge state. Every handler reads through the
// narrow interfaces in Deps, so tests drive it with hand-written fakes and
// httptest.
//
// # Graceful Degradation
//
// History and the Home Assistant status are optional. Without them the
// matching routes answer 503 and the health report omits the section.
package api
