package censor

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Kind tells how a banned term was interpreted.
type Kind int

const (
	KindLiteral Kind = iota
	KindWildcard
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindWildcard:
		return "wildcard"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	rawMarkers      = `()[]|`
	wildcardMarkers = "*+"
	regexMeta       = `\.+*?()|[]{}^$#`
)

// Normalize classifies a banned term and returns the pattern fragment for it.
//
// Terms holding grouping, class or alternation characters are raw patterns
// and are returned untouched. Anchors and escapes alone do not make a raw
// pattern: '$' is a common spelling of 's'. Terms holding '*' or '+' are
// wildcard terms and get their markers rewritten. Everything else is a literal
// with metacharacters escaped; letters are left for ExpandLeet.
func Normalize(term string) (string, Kind, error) {
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return "", KindLiteral, fmt.Errorf("%w: empty term", ErrInvalidTerm)
	}

	switch {
	case strings.ContainsAny(term, rawMarkers):
		return term, KindRaw, nil
	case strings.ContainsAny(term, wildcardMarkers):
		frag, err := expandWildcards(term)
		if err != nil {
			return "", KindWildcard, err
		}
		return frag, KindWildcard, nil
	default:
		return quoteMeta(term), KindLiteral, nil
	}
}

// piece is one unit of a wildcard term during rewriting: either a raw rune
// still waiting to be resolved or an already rewritten expression.
type piece struct {
	r        rune
	expr     string
	resolved bool
}

func (p piece) isMarker() bool {
	return !p.resolved && (p.r == '*' || p.r == '+')
}

// expandWildcards rewrites '*' and '+' markers one per pass until none remain.
// The number of passes is bounded by the rune count of the term.
//
//	b*d  -> b[^d\s]*d   (any run that does not contain the next literal)
//	bad* -> bad\S*
//	ba+d -> ba(?!a)d    (the letter must not repeat right away)
func expandWildcards(term string) (string, error) {
	runes := []rune(term)
	pieces := make([]piece, len(runes))
	hasLiteral := false
	for i, r := range runes {
		pieces[i] = piece{r: r}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasLiteral = true
		}
	}
	if !hasLiteral {
		return "", fmt.Errorf("%w: wildcard %q has no literal characters", ErrInvalidTerm, term)
	}

	for pass := 0; ; pass++ {
		if pass > len(runes) {
			return "", fmt.Errorf("%w: wildcard %q did not settle", ErrInvalidTerm, term)
		}

		i := firstMarker(pieces)
		if i < 0 {
			break
		}

		switch pieces[i].r {
		case '+':
			if i == 0 || pieces[i-1].resolved || !unicode.IsLetter(pieces[i-1].r) {
				return "", fmt.Errorf("%w: '+' must follow a letter in %q", ErrInvalidTerm, term)
			}
			l := string(pieces[i-1].r)
			pieces[i-1] = piece{expr: l + "(?!" + l + ")", resolved: true}
			pieces = append(pieces[:i], pieces[i+1:]...)

		case '*':
			next := i + 1
			switch {
			case next < len(pieces) && !pieces[next].resolved && pieces[next].r == '*':
				// "**" collapses into a single marker
				pieces = append(pieces[:i], pieces[i+1:]...)
			case next < len(pieces) && !pieces[next].resolved && !pieces[next].isMarker():
				pieces[i] = piece{expr: `[^` + classEscape(pieces[next].r) + `\s]*`, resolved: true}
			default:
				pieces[i] = piece{expr: `\S*`, resolved: true}
			}
		}
	}

	var sb strings.Builder
	for _, p := range pieces {
		if p.resolved {
			sb.WriteString(p.expr)
			continue
		}
		sb.WriteString(quoteMeta(string(p.r)))
	}

	return sb.String(), nil
}

func firstMarker(pieces []piece) int {
	for i, p := range pieces {
		if p.isMarker() {
			return i
		}
	}
	return -1
}

// quoteMeta escapes the regexp metacharacters in s.
func quoteMeta(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(regexMeta, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// classEscape returns r ready to be placed inside a character class.
// Word characters must stay bare, the engine rejects escaped letters.
func classEscape(r rune) string {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return string(r)
	}
	return `\` + string(r)
}
