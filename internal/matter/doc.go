// Package matter holds the shared vocabulary of the Matter side of the hub.
//
// The synchronisation core lives in the sub-packages:
//
//   - canonical: turns arbitrary Home Assistant values into protocol-legal values
//   - attribute: attribute containers and minimal-write patch application
//   - clusters:  per-capability projections (entity snapshot -> desired attributes)
//   - behavior:  capability registry, endpoint host and the behavior state machine
//
// # Data Flow
//
//	HA state_changed ─▶ homeassistant.Hub ─▶ Behavior reaction
//	                                            │
//	                                            ▼
//	                              Projection (pure) ─▶ attribute.Patch
//	                                                         │
//	                                                         ▼
//	                                     Container.ApplyPatch ─▶ change listeners
//
// This package only declares the error taxonomy and cluster identifiers so the
// sub-packages can share them without import cycles.
package matter
