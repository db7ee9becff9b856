// Package textnorm normalizes and tokenizes German free-text requests.
//
// Folding removes diacritics and case so that "Prämie", "PRAMIE" and
// "Prämie" compare equal. Tokens keep their raw text for literal
// values and carry the folded text for keyword matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var sharpS = strings.NewReplacer("ß", "ss", "ẞ", "ss")

// umlautSpelling undoes the ASCII transliteration of umlauts, so "Praemie"
// folds like "Prämie". It runs on lower-cased text.
var umlautSpelling = strings.NewReplacer("ae", "a", "oe", "o", "ue", "u")

// Fold returns the comparison form of s: decomposed, diacritics removed,
// ß expanded, ae/oe/ue reduced to a/o/u, lower-cased, with whitespace
// collapsed to single spaces.
//
// The umlaut reduction also touches words like "neue" ("nue"); keywords
// and requests fold the same way, so matching is unaffected.
func Fold(s string) string {
	// Transformer chains carry state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, sharpS.Replace(s))
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(umlautSpelling.Replace(strings.ToLower(out))), " ")
}

// FoldAll folds every element of words, dropping empties and duplicates
// while keeping first-seen order.
func FoldAll(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		f := Fold(w)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Phrase splits a folded keyword into its word sequence.
func Phrase(keyword string) []string {
	return strings.Fields(Fold(keyword))
}
