package canonical

import (
	"crypto/md5" //nolint:gosec // fingerprint for display names, not a security boundary
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
)

const (
	// MinStringLength is the smallest limit String accepts. Anything shorter
	// leaves too little room next to the fingerprint to stay recognisable.
	MinStringLength = 16

	// fingerprintLength is the number of hex characters appended to
	// shortened strings.
	fingerprintLength = 4
)

// ValidateLength reports whether maxLength is an acceptable string limit.
//
// Returns:
//   - error: wraps matter.ErrConfiguration if maxLength < MinStringLength
func ValidateLength(maxLength int) error {
	if maxLength < MinStringLength {
		return fmt.Errorf("%w: max length %d is below the minimum of %d",
			matter.ErrConfiguration, maxLength, MinStringLength)
	}
	return nil
}

// String returns value unchanged when it fits in maxLength bytes. Longer
// values are cut to maxLength-4 bytes and suffixed with the first four hex
// characters of the MD5 digest of the full original value.
//
// Parameters:
//   - value: Arbitrary upstream string (may be empty, long or non-ASCII)
//   - maxLength: Attribute limit in bytes, at least MinStringLength
//
// Returns:
//   - string: Protocol-legal value, len(result) <= maxLength
//   - error: wraps matter.ErrConfiguration for an invalid maxLength
func String(value string, maxLength int) (string, error) {
	if err := ValidateLength(maxLength); err != nil {
		return "", err
	}
	if len(value) <= maxLength {
		return value, nil
	}
	return truncateUTF8(value, maxLength-fingerprintLength) + Fingerprint(value), nil
}

// Fingerprint returns the four hex character digest prefix used by String.
// Collisions between distinct values are possible and tolerated.
func Fingerprint(value string) string {
	sum := md5.Sum([]byte(value)) //nolint:gosec // see import comment
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// UniqueID derives a stable 32 character identifier from an entity ID.
// It is used for the uniqueId attribute, which must never change for the
// lifetime of a bridged device.
func UniqueID(entityID string) string {
	sum := md5.Sum([]byte(entityID)) //nolint:gosec // identifier derivation only
	return hex.EncodeToString(sum[:])
}

// Enum returns value if it is one of allowed, otherwise fallback.
func Enum(value string, allowed []string, fallback string) string {
	for _, a := range allowed {
		if a == value {
			return value
		}
	}
	return fallback
}
