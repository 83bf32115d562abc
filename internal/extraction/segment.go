package extraction

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// Sentences splits text at '.', '!' and '?' together with any whitespace that
// follows them. Delimiters are dropped. Empty fragments are yielded as-is, and
// text without a delimiter yields itself once. The sequence can be ranged over
// any number of times.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(text); {
			switch text[i] {
			case '.', '!', '?':
				if !yield(text[start:i]) {
					return
				}
				i++
				for i < len(text) {
					r, size := utf8.DecodeRuneInString(text[i:])
					if !unicode.IsSpace(r) {
						break
					}
					i += size
				}
				start = i
			default:
				i++
			}
		}
		yield(text[start:])
	}
}
