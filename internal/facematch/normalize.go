package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/rollcall/internal/constants"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName is the roster uniqueness key of a name: lowercase, no
// diacritics, dashes read as spaces and runs of whitespace collapsed.
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// IsReservedName reports whether name normalizes to the token the ledger
// records for unrecognized faces. Such names cannot be enrolled.
func IsReservedName(name string) bool {
	return NormalizePersonName(name) == NormalizePersonName(constants.UnknownName)
}
