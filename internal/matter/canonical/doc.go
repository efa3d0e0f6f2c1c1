// Package canonical converts arbitrary Home Assistant values into values that
// are legal on the Matter attribute surface.
//
// Every function here is total over its data inputs and deterministic: the
// same input always yields the same output, so re-projecting unchanged data
// never shows up as an attribute change. Only static misconfiguration (a
// string limit below MinStringLength) is reported as an error.
//
// # String Limits
//
// Matter char_string limits count encoded octets, not characters. String
// measures and truncates in UTF-8 bytes and never splits a multi-byte rune,
// so for ASCII input the result is identical to character semantics.
//
// # Usage
//
//	label, err := canonical.String(entity.FriendlyName, 32)
//	level := canonical.Level(brightness)          // 0..255 -> 1..254
//	vendor := canonical.VendorID(cfg.VendorID)    // falls back to 0xFFF1
package canonical
