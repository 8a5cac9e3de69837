package memdb

import (
	"context"
	"sync"

	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
)

// Store keeps a dictionary in memory.
type Store struct {
	mu        sync.Mutex
	terms     []censor.Term
	whitelist []string
}

func New() *Store {
	return &Store{}
}

func (db *Store) Dictionary(ctx context.Context) (dictionary.Dictionary, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	d := dictionary.Dictionary{
		Terms:     append([]censor.Term{}, db.terms...),
		Whitelist: append([]string{}, db.whitelist...),
	}
	return d, nil
}

func (db *Store) SetTerms(ctx context.Context, terms []censor.Term) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.terms = dictionary.DedupeTerms(terms)
	return nil
}

func (db *Store) AddTerms(ctx context.Context, terms []censor.Term) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.terms = dictionary.DedupeTerms(append(db.terms, terms...))
	return nil
}

func (db *Store) SetWhitelist(ctx context.Context, phrases []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.whitelist = dictionary.DedupePhrases(phrases)
	return nil
}
