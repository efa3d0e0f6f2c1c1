// Package behavior binds Matter capabilities to Home Assistant entities.
//
// A capability is described once by a Descriptor: its name, the cluster
// it serves, the capabilities it depends on, default attribute values and
// a pure projection from an entity snapshot to a desired attribute patch.
// Descriptors live in a Registry, which rejects misconfiguration (bad
// string limits, unknown or cyclic dependencies) before anything runs.
//
// An Endpoint hosts the behaviors of one bridged device. Each Behavior is
// a small state machine:
//
//	Uninitialized --Activate--> Active --Close--> Terminated
//
// Activation loads the required sibling capabilities through the endpoint,
// applies an initial projection of the current snapshot, and subscribes to
// the entity's change stream. Every notification re-projects and re-applies
// the patch. Reactions of one behavior never overlap, snapshots older than
// the last applied one are dropped, and once Close returns no further
// reaction can touch the attribute container.
package behavior
