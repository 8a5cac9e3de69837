// Package dictionary loads banned terms and whitelisted phrases from the
// places they are kept and hands them to a censor.
package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"censorship/pkg/censor"
)

var (
	ErrUnknownFormat   = errors.New("unknown dictionary format")
	ErrConnectDB       = errors.New("unable to establish DB connection")
	ErrDBNotResponding = errors.New("DB not responding")
)

// Dictionary is a full set of banned terms and whitelisted phrases.
type Dictionary struct {
	Terms     []censor.Term `json:"terms"`
	Whitelist []string      `json:"whitelist"`
}

// Source provides a dictionary.
type Source interface {
	Dictionary(ctx context.Context) (Dictionary, error)
}

// Store is a Source that can also be edited.
type Store interface {
	Source
	SetTerms(ctx context.Context, terms []censor.Term) error
	AddTerms(ctx context.Context, terms []censor.Term) error
	SetWhitelist(ctx context.Context, phrases []string) error
}

// Apply loads the dictionary from src and replaces the terms and the whitelist
// of c with it.
func Apply(ctx context.Context, src Source, c *censor.Censor) error {
	d, err := src.Dictionary(ctx)
	if err != nil {
		return err
	}

	if err := c.SetTerms(d.Terms...); err != nil {
		return err
	}
	c.SetWhitelist(d.Whitelist...)

	log.Infof("[dictionary] loaded %d terms and %d whitelisted phrases", len(d.Terms), len(d.Whitelist))
	return nil
}

// FileSource reads a dictionary from a JSON file.
type FileSource struct {
	Path string
}

func (f FileSource) Dictionary(ctx context.Context) (Dictionary, error) {
	return LoadFromJSON(f.Path)
}

// LoadFromJSON reads and parses a dictionary file.
func LoadFromJSON(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, err
	}

	d, err := Parse(data)
	if err != nil {
		return Dictionary{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return d, nil
}

// entry is one element of a term list. Besides plain strings and
// {"text", "boundary"} objects it accepts the older word entries with a
// pattern overriding the text and exceptions that belong to the whitelist.
type entry struct {
	Text       string          `json:"text"`
	Pattern    string          `json:"pattern"`
	Boundary   censor.Boundary `json:"boundary"`
	Exceptions []string        `json:"exceptions"`
}

func (e *entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*e = entry{}
		return json.Unmarshal(data, &e.Text)
	}

	type plain entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = entry(p)
	return nil
}

// Parse decodes a dictionary. Three layouts are understood:
//
//	["term", ...]
//	{"terms": ["term", {"text": "term", "boundary": "always"}], "whitelist": ["phrase"]}
//	[{"text": "term", "pattern": "t(e|3)rm", "exceptions": ["phrase"]}]
//
// Terms are deduplicated, the first occurrence wins.
func Parse(data []byte) (Dictionary, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Dictionary{}, ErrUnknownFormat
	}

	var (
		entries   []entry
		whitelist []string
	)
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return Dictionary{}, err
		}
	case '{':
		var obj struct {
			Terms     []entry  `json:"terms"`
			Whitelist []string `json:"whitelist"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return Dictionary{}, err
		}
		entries, whitelist = obj.Terms, obj.Whitelist
	default:
		return Dictionary{}, ErrUnknownFormat
	}

	d := Dictionary{Terms: []censor.Term{}, Whitelist: []string{}}
	seen := make(map[string]bool)
	for _, e := range entries {
		text := e.Text
		if e.Pattern != "" {
			text = e.Pattern
		}
		if text != "" && !seen[text] {
			seen[text] = true
			d.Terms = append(d.Terms, censor.Term{Text: text, Boundary: e.Boundary})
		}
		whitelist = append(whitelist, e.Exceptions...)
	}
	d.Whitelist = append(d.Whitelist, DedupePhrases(whitelist)...)

	return d, nil
}

// DedupePhrases drops empty and repeated phrases, keeping the first occurrence.
func DedupePhrases(ss []string) []string {
	out := make([]string, 0, len(ss))
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// DedupeTerms drops empty and repeated terms, keeping the first occurrence.
func DedupeTerms(terms []censor.Term) []censor.Term {
	out := make([]censor.Term, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if t.Text == "" || seen[t.Text] {
			continue
		}
		seen[t.Text] = true
		out = append(out, t)
	}
	return out
}
