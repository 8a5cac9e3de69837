package censor

import (
	"math/rand"
	"strings"
	"unicode/utf8"
)

// DefaultFill is the fill value of a new Censor.
const DefaultFill = "*"

// Mask returns a filler exactly as long as s, counted in runes. A single rune
// fill is repeated; a longer fill is a palette that is shuffled and cycled.
func Mask(s, fill string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}

	palette := []rune(fill)
	switch len(palette) {
	case 0:
		return strings.Repeat(DefaultFill, n)
	case 1:
		return strings.Repeat(fill, n)
	}

	rand.Shuffle(len(palette), func(i, j int) {
		palette[i], palette[j] = palette[j], palette[i]
	})

	out := make([]rune, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return string(out)
}
