// Package names canonicalizes person names into the join key used to match
// ticket owners against the presence roster.
package names

import "strings"

// Normalize lowers and reorders a display name into "first last" form.
// "Smith, Robert C" and "Robert Smith" both normalize to "robert smith".
// The empty string normalizes to itself; the function never fails.
//
// Only the first comma acts as the last/first split (anything past a second
// comma is ignored), and whitespace runs inside the last-name portion are
// kept as-is. Nickname and phonetic variants are out of scope.
func Normalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ",")
	if len(parts) == 1 {
		// Assumed already "First Last" order.
		return name
	}
	last := strings.TrimSpace(parts[0])
	given := strings.Fields(parts[1])
	if len(given) == 0 {
		return last
	}
	return given[0] + " " + last
}
