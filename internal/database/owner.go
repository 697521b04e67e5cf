package database

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeOwner canonicalizes an owner identifier before it is used as a
// data-scoping key. Identifiers arrive from CLI flags, HTTP headers, and the
// catalog; NFC normalization keeps composed and decomposed unicode forms of
// the same name from splitting one user's data across two keys.
func NormalizeOwner(owner string) string {
	return norm.NFC.String(strings.TrimSpace(owner))
}
