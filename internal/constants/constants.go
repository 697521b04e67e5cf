// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Duplicate detection constants
const (
	// DefaultHammingThreshold is the fallback maximum Hamming distance for
	// near-duplicate detection when no sensitivity is given. pHash produces
	// 64-bit fingerprints; a distance <= 10 indicates high similarity.
	DefaultHammingThreshold = 10

	// MinHammingThreshold and MaxHammingThreshold bound user-supplied
	// thresholds. Smaller values are stricter.
	MinHammingThreshold = 1
	MaxHammingThreshold = 20

	// DefaultHashSize controls fingerprint bit length: hashSize^2 bits.
	// The default of 8 produces 64-bit fingerprints (16 hex characters).
	DefaultHashSize = 8
)

// Batch job constants
const (
	// HashSaveInterval is the number of hashed photos between job record
	// updates during the backfill phase, to reduce database writes.
	HashSaveInterval = 10

	// JobErrorMaxLen is the maximum length of an error message stored in a
	// failed job's progress step.
	JobErrorMaxLen = 80
)

// Hash backfill constants
const (
	// DefaultHashConcurrency is the default number of parallel workers for
	// the standalone hash backfill command.
	DefaultHashConcurrency = 8
)

// Pagination constants
const (
	// DefaultGroupPageSize is the default number of duplicate groups per page.
	DefaultGroupPageSize = 20

	// MaxGroupPageSize caps the page size a client may request.
	MaxGroupPageSize = 100
)
