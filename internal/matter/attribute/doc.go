// Package attribute holds live Matter attribute state and the patch
// discipline used to change it.
//
// A Container is the protocol-visible state of one capability on one
// endpoint. It is written only by ApplyPatch, which compares every desired
// value against the current one and writes the keys that actually differ.
// Applying the same patch twice therefore produces no second round of
// writes, and keys absent from a patch are never touched.
//
// Containers are safe for a single writer and any number of readers.
// Listeners registered with OnChange receive the list of changes made by
// each patch after the write lock has been released.
package attribute
