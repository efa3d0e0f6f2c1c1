// Package clusters defines the capability descriptors the bridge exposes:
// one projection per Matter cluster, plus the internal "homeassistant"
// capability that carries entity and bridge metadata for its siblings.
//
// Every projection is a pure function of the entity snapshot (and, where
// declared, sibling capability state). Protocol-facing strings and numbers
// go through package canonical, so every attribute written is legal no
// matter what Home Assistant reports. Missing or malformed fields fall back
// to documented defaults; projections only return errors for static
// misconfiguration.
package clusters
