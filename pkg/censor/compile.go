package censor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	log "github.com/sirupsen/logrus"
)

// Boundary selects whether a term is anchored to word boundaries.
type Boundary int

const (
	// BoundaryInherit follows the fullWords flag of the censor call.
	BoundaryInherit Boundary = iota
	BoundaryAlways
	BoundaryNever
)

func (b Boundary) bounded(fullWords bool) bool {
	switch b {
	case BoundaryAlways:
		return true
	case BoundaryNever:
		return false
	}
	return fullWords
}

func (b Boundary) String() string {
	switch b {
	case BoundaryInherit:
		return "inherit"
	case BoundaryAlways:
		return "always"
	case BoundaryNever:
		return "never"
	}
	return fmt.Sprintf("Boundary(%d)", int(b))
}

func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Boundary) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "inherit":
		*b = BoundaryInherit
	case "always":
		*b = BoundaryAlways
	case "never":
		*b = BoundaryNever
	default:
		return fmt.Errorf("unknown boundary %q", text)
	}
	return nil
}

// Term is a banned term with its boundary policy.
type Term struct {
	Text     string   `json:"text" bson:"term"`
	Boundary Boundary `json:"boundary,omitempty" bson:"boundary,omitempty"`
}

// UnmarshalJSON accepts either a plain string or a {"text", "boundary"} object.
func (t *Term) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*t = Term{}
		return json.Unmarshal(data, &t.Text)
	}

	type plain Term
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Term(p)
	return nil
}

// Terms wraps plain strings into terms that inherit the boundary policy.
func Terms(texts ...string) []Term {
	terms := make([]Term, len(texts))
	for i, t := range texts {
		terms[i] = Term{Text: t}
	}
	return terms
}

// Unicode aware word boundaries. Unlike \b they also work next to a
// non-word first or last character of a term.
const (
	boundaryStart = `(?<![\p{L}\p{N}_])`
	boundaryEnd   = `(?![\p{L}\p{N}_])`
)

// MatchTimeout bounds a single regexp evaluation.
var MatchTimeout = 250 * time.Millisecond

// CompiledPattern is the matcher derived from one banned term.
type CompiledPattern struct {
	Term    Term
	Kind    Kind
	Bounded bool
	Expr    string

	re *regexp2.Regexp
}

// Compile builds one pattern per usable term, keeping the input order.
// Invalid terms are skipped with a warning; a term the regexp engine rejects
// aborts compilation with a *PatternCompileError.
func Compile(terms []Term, fullWords bool) ([]*CompiledPattern, error) {
	patterns := make([]*CompiledPattern, 0, len(terms))
	for i, t := range terms {
		p, err := compileTerm(t, fullWords)
		if errors.Is(err, ErrInvalidTerm) {
			log.Warnf("[censor] skipping term #%d %q: %v", i, t.Text, err)
			continue
		}
		if err != nil {
			return nil, &PatternCompileError{Index: i, Term: t.Text, Err: err}
		}
		patterns = append(patterns, p)
	}

	return patterns, nil
}

func compileTerm(t Term, fullWords bool) (*CompiledPattern, error) {
	frag, kind, err := Normalize(t.Text)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindLiteral:
		frag = ExpandLeet(frag)
	case KindRaw:
		// a user pattern must stand on its own, wrapping could hide unbalanced groups
		if _, err := compileExpr(frag); err != nil {
			return nil, err
		}
	}

	p := &CompiledPattern{
		Term:    t,
		Kind:    kind,
		Bounded: t.Boundary.bounded(fullWords),
	}
	p.Expr = anchor(frag, p.Bounded)

	p.re, err = compileExpr(p.Expr)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func anchor(expr string, bounded bool) string {
	if !bounded {
		return "(?:" + expr + ")"
	}
	return boundaryStart + "(?:" + expr + ")" + boundaryEnd
}

func compileExpr(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout

	return re, nil
}

// FindAll returns every non-overlapping, non-empty match of the pattern in s.
// On a match timeout the matches found so far are returned with the error.
func (p *CompiledPattern) FindAll(s string) ([]string, error) {
	hits, err := findAll(p.re, s)

	var texts []string
	for _, h := range hits {
		texts = append(texts, h.text)
	}
	return texts, err
}

// hit is one match with its offsets counted in runes.
type hit struct {
	text          string
	index, length int
}

func findAll(re *regexp2.Regexp, s string) ([]hit, error) {
	var found []hit

	m, err := re.FindStringMatch(s)
	for m != nil && err == nil {
		if m.Length > 0 {
			found = append(found, hit{text: m.String(), index: m.Index, length: m.Length})
		}
		m, err = re.FindNextMatch(m)
	}

	return found, err
}
