package enroll

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeLabel turns a typed name into a profile label: "Jiří  Novák-Dvořák"
// becomes "jiri novak dvorak". Marks are stripped after NFD decomposition,
// dashes separate words and runs of whitespace collapse to one space.
func NormalizeLabel(name string) string {
	// Transformers keep state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	return strings.Join(words, " ")
}
