// Package label canonicalises free-text place names so that spelling variants
// of the same waypoint compare equal.
package label

import "strings"

var replacer = strings.NewReplacer(
	// zero-width and BOM
	"\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "",
	// dash-like code points
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-",
	"\u2015", "-", "\u2212", "-", "\ufe58", "-", "\ufe63", "-", "\uff0d", "-",
	// quotes
	"\u201c", "", "\u201d", "", "\"", "", "\u2018", "", "\u2019", "",
	// brackets, ASCII and full-width
	"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ",
	"\uff08", " ", "\uff09", " ", "\uff3b", " ", "\uff3d", " ", "\uff5b", " ", "\uff5d", " ",
)

// Normalize returns the comparison form of a raw label. Two labels with the
// same normalized form are the same graph node.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out := replacer.Replace(s)
	out = strings.Join(strings.Fields(out), " ")
	return strings.ToLower(out)
}

// EqualFold reports whether a and b match after trimming, ignoring case. It
// is the looser comparison used for geometry and stop labels, which are keyed
// by the raw text rather than the normalized form.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
