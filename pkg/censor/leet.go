package censor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// leetTable lists, per letter, the literal spellings a letter may take in
// obfuscated text. Entries are plain text; they are escaped when the classes
// are built.
var leetTable = map[rune][]string{
	'a': {"a.", "a-", "a", "4", "@", "Á", "á", "À", "à", "Â", "â", "Ä", "ä", "Ã", "ã", "Å", "å", "α", "Δ", "Λ", "λ"},
	'b': {"b.", "b-", "b", "8", "|3", "ß", "Β", "β"},
	'c': {"c.", "c-", "c", "Ç", "ç", "¢", "€", "<", "(", "{", "©"},
	'd': {"d.", "d-", "d", "∂", "|)", "Þ", "þ", "Ð", "ð"},
	'e': {"e.", "e-", "e", "3", "€", "È", "è", "É", "é", "Ê", "ê", "∑"},
	'f': {"f.", "f-", "f", "ƒ"},
	'g': {"g.", "g-", "g", "q", "6", "9"},
	'h': {"h.", "h-", "h", "Η"},
	'i': {"i.", "i-", "i", "!", "|", "][", "]", "1", "∫", "Ì", "Í", "Î", "Ï", "ì", "í", "î", "ï"},
	'j': {"j.", "j-", "j"},
	'k': {"k.", "k-", "k", "Κ", "κ"},
	'l': {"l.", "l-", "l", "1", "!", "|", "][", "]", "£", "∫", "Ì", "Í", "Î", "Ï"},
	'm': {"m.", "m-", "m"},
	'n': {"n.", "n-", "n", "η", "Ν", "Π"},
	'o': {"o.", "o-", "o", "0", "Ο", "ο", "Φ", "¤", "°", "ø"},
	'p': {"p.", "p-", "p", "ρ", "Ρ", "¶", "þ"},
	'q': {"q.", "q-", "q", "g"},
	'r': {"r.", "r-", "r", "®"},
	's': {"s.", "s-", "s", "5", "$", "§"},
	't': {"t.", "t-", "t", "Τ", "τ", "7"},
	'u': {"u.", "u-", "u", "υ", "µ"},
	'v': {"v.", "v-", "v", "υ", "ν"},
	'w': {"w.", "w-", "w", "ω", "ψ", "Ψ"},
	'x': {"x.", "x-", "x", "Χ", "χ"},
	'y': {"y.", "y-", "y", "¥", "γ", "ÿ", "ý", "Ÿ", "Ý"},
	'z': {"z.", "z-", "z", "Ζ"},
}

// leetClasses holds the ready alternation group for every table letter.
var leetClasses = buildLeetClasses(leetTable)

// leetSymbols maps a one-rune symbol spelling back to its letter. Symbols
// shared by several letters ('!' for i and l) map to 0.
var leetSymbols = buildLeetSymbols(leetTable)

func buildLeetSymbols(table map[rune][]string) map[rune]rune {
	symbols := make(map[rune]rune)
	for letter, spellings := range table {
		for _, s := range spellings {
			r, size := utf8.DecodeRuneInString(s)
			if size != len(s) || unicode.IsLetter(r) || unicode.IsNumber(r) {
				continue
			}
			if prev, ok := symbols[r]; ok && prev != letter {
				symbols[r] = 0
				continue
			}
			symbols[r] = letter
		}
	}
	return symbols
}

// symbolClass returns the alternation group of the letter r stands for, if r
// stands for exactly one.
func symbolClass(r rune) (string, bool) {
	letter := leetSymbols[r]
	if letter == 0 {
		return "", false
	}
	return leetClasses[letter], true
}

func buildLeetClasses(table map[rune][]string) map[rune]string {
	classes := make(map[rune]string, len(table))
	for letter, spellings := range table {
		alts := make([]string, len(spellings))
		for i, s := range spellings {
			alts[i] = quoteMeta(s)
		}
		classes[letter] = "(?:" + strings.Join(alts, "|") + ")"
	}
	return classes
}

// ExpandLeet turns a literal fragment (as produced by Normalize) into a pattern
// tolerant to leetspeak and repeated characters. Every ASCII letter becomes its
// alternation group, and so does a symbol standing for exactly one letter
// ("a$$" matches "ass"). Every atom may repeat. The fragment is walked once, so
// already expanded groups are never substituted again.
func ExpandLeet(fragment string) string {
	var sb strings.Builder
	sb.Grow(len(fragment) * 16)

	for len(fragment) > 0 {
		r, size := utf8.DecodeRuneInString(fragment)

		if r == '\\' && len(fragment) > size {
			// escaped metacharacter: copy the escape and the character as one atom
			esc, next := utf8.DecodeRuneInString(fragment[size:])
			if class, ok := symbolClass(esc); ok {
				sb.WriteString(class)
			} else {
				sb.WriteString(fragment[:size+next])
			}
			sb.WriteByte('+')
			fragment = fragment[size+next:]
			continue
		}

		if class, ok := leetClasses[unicode.ToLower(r)]; ok && r < utf8.RuneSelf {
			sb.WriteString(class)
		} else if class, ok := symbolClass(r); ok {
			sb.WriteString(class)
		} else {
			sb.WriteRune(r)
		}
		sb.WriteByte('+')
		fragment = fragment[size:]
	}

	return sb.String()
}
