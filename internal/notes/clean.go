package notes

import "strings"

const (
	titleChars  = "abcdefghijklmnopqrstuvwxyz0123456789._"
	titleFiller = '_'
	tagChars    = "abcdefghijklmnopqrstuvwxyz0123456789-"
	tagFiller   = '-'
)

// CleanTitle lowercases s and reduces it to characters safe in filenames.
func CleanTitle(s string) string {
	return clean(s, titleChars, titleFiller)
}

// CleanTag lowercases s and reduces it to characters allowed in tags.
func CleanTag(s string) string {
	return clean(s, tagChars, tagFiller)
}

// clean replaces characters outside allowed with filler, collapses filler
// runs and trims filler from both ends.
func clean(s, allowed string, filler rune) string {
	var b strings.Builder
	last := rune(0)
	for _, r := range strings.ToLower(s) {
		if !strings.ContainsRune(allowed, r) {
			r = filler
		}
		if r == filler && last == filler {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return strings.Trim(b.String(), string(filler))
}
