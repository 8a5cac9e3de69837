package censor

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// Placeholders are built from private-use runes only: they hold no letters or
// digits, so no banned pattern can see them, and the loose filler class
// refuses to cross them.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
	placeholderDigit = '\uE100'
	placeholderBase  = 256

	reservedFirst = '\uE000'
	reservedLast  = '\uE1FF'
)

func isReserved(r rune) bool {
	return r >= reservedFirst && r <= reservedLast
}

// placeholder renders the token for the i-th protected occurrence.
func placeholder(i int) string {
	var sb strings.Builder
	sb.WriteRune(placeholderOpen)
	for {
		sb.WriteRune(placeholderDigit + rune(i%placeholderBase))
		i /= placeholderBase
		if i == 0 {
			break
		}
	}
	sb.WriteRune(placeholderClose)
	return sb.String()
}

// Whitelist is a compiled set of protected phrases. Phrases are matched
// case-insensitively, the same way banned patterns are.
type Whitelist struct {
	phrases []string
	res     []*regexp2.Regexp
}

// NewWhitelist compiles the phrases. Empty phrases are ignored.
func NewWhitelist(phrases ...string) (*Whitelist, error) {
	w := &Whitelist{}
	for _, ph := range phrases {
		ph = norm.NFC.String(ph)
		if strings.TrimSpace(ph) == "" {
			continue
		}
		re, err := compileExpr(quoteMeta(ph))
		if err != nil {
			return nil, err
		}
		w.phrases = append(w.phrases, ph)
		w.res = append(w.res, re)
	}
	return w, nil
}

// Phrases returns the registered phrases in registration order.
func (w *Whitelist) Phrases() []string {
	if w == nil {
		return nil
	}
	return append([]string(nil), w.phrases...)
}

// Guard remembers what Protect replaced so the text can be restored.
// A Guard belongs to exactly one protected text.
type Guard struct {
	entries []guardEntry
}

type guardEntry struct {
	placeholder string
	original    string
}

// Protect replaces every occurrence of every phrase, in registration order,
// with a placeholder unique to that occurrence.
func (w *Whitelist) Protect(text string) (string, *Guard, error) {
	g := &Guard{}
	if w == nil {
		return text, g, nil
	}

	for _, re := range w.res {
		out, err := re.ReplaceFunc(text, func(m regexp2.Match) string {
			ph := placeholder(len(g.entries))
			g.entries = append(g.entries, guardEntry{placeholder: ph, original: m.String()})
			return ph
		}, -1, -1)
		if err != nil {
			return "", nil, err
		}
		text = out
	}

	return text, g, nil
}

// Restore puts the protected text back in place of the placeholders.
func (g *Guard) Restore(text string) string {
	if g == nil {
		return text
	}
	for _, e := range g.entries {
		text = strings.Replace(text, e.placeholder, e.original, 1)
	}
	return text
}

// Len reports the number of protected occurrences.
func (g *Guard) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// stripReserved replaces runes from the placeholder range found in user input.
func stripReserved(s string) string {
	if !strings.ContainsFunc(s, isReserved) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isReserved(r) {
			return utf8.RuneError
		}
		return r
	}, s)
}
