package domain

import "strings"

// LocalizedName is the canonical bilingual pair carried by every cart item:
// the Chinese original alongside its user-language rendering. Values are
// immutable once built; rendering works on copies.
type LocalizedName struct {
	Original   string
	Translated string
}

// cjkRanges covers the Unicode blocks used to classify a string as
// "Chinese-bearing" (CJK extension A, unified ideographs, kana, hangul).
var cjkRanges = [][2]rune{
	{0x3400, 0x4DBF},
	{0x4E00, 0x9FFF},
	{0x3040, 0x30FF},
	{0xAC00, 0xD7AF},
}

// ContainsCJK reports whether s contains at least one CJK codepoint.
func ContainsCJK(s string) bool {
	for _, r := range s {
		for _, rng := range cjkRanges {
			if r >= rng[0] && r <= rng[1] {
				return true
			}
		}
	}
	return false
}

// BuildLocalizedName assigns the presumed-Chinese and presumed-translated
// strings to their correct slots using CJK detection. The assignment never
// loses either input:
//   - original carries CJK: taken as-is; a missing or CJK-bearing translated
//     field falls back to the original.
//   - only translated carries CJK: the fields were supplied reversed and are
//     swapped.
//   - neither carries CJK: kept as supplied; callers translate at render time.
//
// The function is idempotent: applying it to its own output is a no-op.
func BuildLocalizedName(original, translated string) LocalizedName {
	original = strings.TrimSpace(original)
	translated = strings.TrimSpace(translated)

	switch {
	case ContainsCJK(original):
		if translated == "" || ContainsCJK(translated) {
			translated = original
		}
		return LocalizedName{Original: original, Translated: translated}
	case ContainsCJK(translated):
		return LocalizedName{Original: translated, Translated: original}
	default:
		if translated == "" {
			translated = original
		}
		return LocalizedName{Original: original, Translated: translated}
	}
}

// CorrectReversal swaps the two fields once when the original slot carries no
// CJK while the translated slot does. It reports whether a swap happened so
// callers can log the correction.
func (n LocalizedName) CorrectReversal() (LocalizedName, bool) {
	if !ContainsCJK(n.Original) && ContainsCJK(n.Translated) {
		return LocalizedName{Original: n.Translated, Translated: n.Original}, true
	}
	return n, false
}

// NeedsTranslation reports whether the pair still lacks a user-language
// rendering distinct from a non-CJK original (both fields non-CJK), meaning
// a post-hoc translation should be attempted at render time.
func (n LocalizedName) NeedsTranslation() bool {
	return !ContainsCJK(n.Original) && !ContainsCJK(n.Translated)
}
