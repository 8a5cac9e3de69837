// Important notice: test files contain samples of offensive-looking terms
// required for pattern validation. They are technical artifacts only.

// Package censor finds and masks banned words in user supplied text.
//
// Banned terms are compiled into case-insensitive patterns tolerant to
// leetspeak, inserted separators and repeated characters. Whitelisted phrases
// are shielded from matching, so a phrase containing a banned substring stays
// untouched. Masking is length preserving: every matched span is replaced by
// the same number of fill runes.
package censor

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/dlclark/regexp2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// looseFiller is what a loose pattern accepts between two letters or digits of
// an already confirmed match. Private-use runes are excluded, placeholders are
// built from them.
const looseFiller = `[^\p{L}\p{N}\p{Co}]{0,26}`

// Result is the outcome of one Censor call.
type Result struct {
	Orig    string   `json:"orig"`
	Clean   string   `json:"clean"`
	Matched []string `json:"matched"`
}

// Censor holds banned terms, the whitelist and the fill value, and lazily
// compiles them into a pattern set. It is safe for concurrent use.
type Censor struct {
	mu        sync.Mutex
	terms     []Term
	whitelist []string
	fill      string

	// cache is indexed by the fullWords flag; a nil entry is stale.
	cache [2]*patternSet
}

// patternSet is an immutable compiled snapshot of the censor state.
type patternSet struct {
	patterns  []*CompiledPattern
	whitelist *Whitelist
	fill      string
}

// New returns an empty Censor instance.
func New() *Censor {
	return &Censor{fill: DefaultFill}
}

// SetBannedTerms replaces the banned terms.
func (c *Censor) SetBannedTerms(terms ...string) error {
	return c.SetTerms(Terms(terms...)...)
}

// AddBannedTerms appends banned terms to the current list.
func (c *Censor) AddBannedTerms(terms ...string) error {
	return c.AddTerms(Terms(terms...)...)
}

// SetTerms replaces the banned terms. Terms are validated before the list is
// touched, see Validate.
func (c *Censor) SetTerms(terms ...Term) error {
	valid, err := validate(terms, 0, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.terms = valid
	c.invalidate()

	return nil
}

// AddTerms appends terms, with the same validation as SetTerms. Terms already
// registered are skipped.
func (c *Censor) AddTerms(terms ...Term) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valid, err := validate(terms, len(c.terms), c.terms)
	if err != nil {
		return err
	}
	c.terms = append(c.terms, valid...)
	c.invalidate()

	return nil
}

// Validate returns the usable terms of the list in order and without repeats.
// Invalid terms are dropped with a warning. A pattern the regexp engine
// rejects fails the whole list with a *PatternCompileError indexed into it.
func Validate(terms ...Term) ([]Term, error) {
	return validate(terms, 0, nil)
}

func validate(terms []Term, offset int, registered []Term) ([]Term, error) {
	seen := make(map[string]bool, len(registered)+len(terms))
	for _, t := range registered {
		seen[t.Text] = true
	}

	valid := make([]Term, 0, len(terms))
	for i, t := range terms {
		if seen[t.Text] {
			continue
		}
		if _, err := compileTerm(t, false); err != nil {
			if errors.Is(err, ErrInvalidTerm) {
				log.Warnf("[censor] skipping term #%d %q: %v", offset+i, t.Text, err)
				continue
			}
			return nil, &PatternCompileError{Index: offset + i, Term: t.Text, Err: err}
		}
		seen[t.Text] = true
		valid = append(valid, t)
	}
	return valid, nil
}

// SetWhitelist replaces the whitelisted phrases.
func (c *Censor) SetWhitelist(phrases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whitelist = cleanPhrases(phrases)
	c.invalidate()
}

// AddWhitelist appends whitelisted phrases.
func (c *Censor) AddWhitelist(phrases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whitelist = append(c.whitelist, cleanPhrases(phrases)...)
	c.invalidate()
}

func cleanPhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, ph := range phrases {
		if strings.TrimSpace(ph) == "" {
			continue
		}
		out = append(out, norm.NFC.String(ph))
	}
	return out
}

// SetFillValue sets the rune, or palette of runes, used for masking. Letters,
// digits and placeholder runes are rejected with ErrInvalidFill. A fill made
// of leet symbols is accepted, but masked text may then match again when it
// is censored a second time ("$$$" spells "sss").
func (c *Censor) SetFillValue(fill string) error {
	fill = strings.ToValidUTF8(fill, "")
	if fill == "" {
		return ErrEmptyFill
	}
	for _, r := range fill {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || isReserved(r) {
			return fmt.Errorf("%w: %q", ErrInvalidFill, r)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill = fill
	c.invalidate()

	return nil
}

// Terms returns a copy of the registered banned terms.
func (c *Censor) Terms() []Term {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.terms)
}

// Whitelist returns a copy of the registered whitelist.
func (c *Censor) Whitelist() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.whitelist)
}

// FillValue returns the current fill value.
func (c *Censor) FillValue() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fill
}

func (c *Censor) invalidate() {
	c.cache = [2]*patternSet{}
}

// snapshot returns the compiled set for fullWords, compiling it if stale.
func (c *Censor) snapshot(fullWords bool) (*patternSet, error) {
	idx := 0
	if fullWords {
		idx = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if set := c.cache[idx]; set != nil {
		return set, nil
	}

	patterns, err := Compile(c.terms, fullWords)
	if err != nil {
		return nil, err
	}
	wl, err := NewWhitelist(c.whitelist...)
	if err != nil {
		return nil, err
	}

	set := &patternSet{patterns: patterns, whitelist: wl, fill: c.fill}
	c.cache[idx] = set
	log.Debugf("[censor] compiled %d patterns (full words: %v)", len(patterns), fullWords)

	return set, nil
}

// Censor scans text for banned terms and masks every match. With fullWords
// set, terms inheriting the boundary policy only match whole words.
//
// HTML entities are decoded and invalid UTF-8 is replaced with U+FFFD before
// scanning; Clean is derived from that text and has the same rune length.
// Orig is always the untouched input.
func (c *Censor) Censor(text string, fullWords bool) (Result, error) {
	set, err := c.snapshot(fullWords)
	if err != nil {
		return Result{Orig: text, Clean: text, Matched: []string{}}, err
	}

	return set.censor(text)
}

// Check reports whether text holds any banned term.
func (c *Censor) Check(text string) (bool, error) {
	res, err := c.Censor(text, false)
	if err != nil {
		return false, err
	}
	return len(res.Matched) > 0, nil
}

// match is a located banned fragment, the anchoring of its pattern and its
// rune span [start, end) in the guarded text.
type match struct {
	text       string
	bounded    bool
	start, end int
}

// looseKey identifies the loose pattern derived from a match.
type looseKey struct {
	text    string
	bounded bool
}

func (s *patternSet) censor(text string) (Result, error) {
	res := Result{Orig: text, Clean: text, Matched: []string{}}
	if len(s.patterns) == 0 {
		return res, nil
	}

	working := stripReserved(strings.ToValidUTF8(html.UnescapeString(text), string(unicode.ReplacementChar)))

	guarded, guard, err := s.whitelist.Protect(working)
	if err != nil {
		return res, err
	}
	runes := []rune(guarded)

	vs := views(runes)
	var found []match
	for _, p := range s.patterns {
		for _, v := range vs {
			found = append(found, p.scan(v)...)
		}
	}

	masked := make([]bool, len(runes))
	for _, m := range found {
		for i := m.start; i < m.end; i++ {
			masked[i] = true
		}
	}
	clean := maskSpans(runes, masked, s.fill)

	// other spellings of a located fragment, e.g. the same word spaced out
	loose := make(map[looseKey]bool)
	for _, m := range found {
		k := looseKey{text: m.text, bounded: m.bounded}
		if loose[k] {
			continue
		}
		loose[k] = true

		out, err := maskLoose(clean, m, s.fill)
		if err != nil {
			log.Warnf("[censor] loose pattern for %q stopped: %v", m.text, err)
			continue
		}
		clean = out
	}

	res.Clean = guard.Restore(clean)
	for _, m := range found {
		if !slices.Contains(res.Matched, m.text) {
			res.Matched = append(res.Matched, m.text)
		}
	}

	return res, nil
}

func (p *CompiledPattern) scan(v view) []match {
	hits, err := findAll(p.re, v.text)
	if err != nil {
		log.Warnf("[censor] pattern for %q stopped: %v", p.Term.Text, err)
	}

	found := make([]match, len(hits))
	for i, h := range hits {
		found[i] = match{
			text:    h.text,
			bounded: p.Bounded,
			start:   v.pos[h.index],
			end:     v.pos[h.index+h.length-1] + 1,
		}
	}
	return found
}

// view is a searchable copy of one guarded segment. pos maps every rune of
// text to its rune index in the guarded text.
type view struct {
	text string
	pos  []int
}

// views splits the guarded text around placeholders, so no match can span a
// protected phrase, and returns two copies of every segment: the sanitized
// one and, when it differs, the lower-cased one. Symbol substitutes such as
// '@' or '$' only survive in the latter.
func views(guarded []rune) []view {
	var vs []view

	from := -1
	for i := 0; i <= len(guarded); i++ {
		if i < len(guarded) && !isReserved(guarded[i]) {
			if from < 0 {
				from = i
			}
			continue
		}
		if from < 0 {
			continue
		}

		var sanitized, lowered []rune
		var sanitizedPos, loweredPos []int
		for j := from; j < i; j++ {
			lowered = append(lowered, unicode.ToLower(guarded[j]))
			loweredPos = append(loweredPos, j)
			if r, ok := sanitizeRune(guarded[j]); ok {
				sanitized = append(sanitized, r)
				sanitizedPos = append(sanitizedPos, j)
			}
		}

		vs = append(vs, view{text: string(sanitized), pos: sanitizedPos})
		if !slices.Equal(sanitized, lowered) {
			vs = append(vs, view{text: string(lowered), pos: loweredPos})
		}
		from = -1
	}

	return vs
}

// sanitizeRune maps a rune of the sanitized copy: whitespace becomes a plain
// space and everything but letters, digits, '_' and '-' is dropped, so
// punctuation inserted between letters does not break a pattern.
func sanitizeRune(r rune) (rune, bool) {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_', r == '-':
		return unicode.ToLower(r), true
	case unicode.IsSpace(r):
		return ' ', true
	}
	return 0, false
}

// maskSpans replaces every run of marked runes with fill.
func maskSpans(runes []rune, marked []bool, fill string) string {
	out := slices.Clone(runes)
	for i := 0; i < len(out); {
		if !marked[i] {
			i++
			continue
		}
		j := i
		for j < len(out) && marked[j] {
			j++
		}
		copy(out[i:j], []rune(Mask(string(runes[i:j]), fill)))
		i = j
	}
	return string(out)
}

// loosePattern lets up to 26 filler runes sit between the letters and digits
// of a confirmed match, to find the same word spelled out with separators.
func loosePattern(m match) string {
	runes := []rune(m.text)

	var sb strings.Builder
	for i, r := range runes {
		sb.WriteString(quoteMeta(string(r)))
		if i < len(runes)-1 && (unicode.IsLetter(r) || unicode.IsNumber(r)) {
			sb.WriteString(looseFiller)
		}
	}

	return anchor(sb.String(), m.bounded)
}

func maskLoose(text string, m match, fill string) (string, error) {
	re, err := compileExpr(loosePattern(m))
	if err != nil {
		return text, err
	}

	return re.ReplaceFunc(text, func(lm regexp2.Match) string {
		return Mask(lm.String(), fill)
	}, -1, -1)
}
