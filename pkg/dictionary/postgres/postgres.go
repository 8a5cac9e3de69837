package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
)

// Store keeps the dictionary in the banned_terms and whitelist tables.
type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	s := Store{
		db: db,
	}

	return &s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Dictionary returns the terms in their registration order and the whitelist.
func (s *Store) Dictionary(ctx context.Context) (dictionary.Dictionary, error) {
	d := dictionary.Dictionary{Terms: []censor.Term{}, Whitelist: []string{}}

	rows, err := s.db.Query(ctx, `
		SELECT term, boundary
		FROM banned_terms
		ORDER BY position, id
	`)
	if err != nil {
		return dictionary.Dictionary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        censor.Term
			boundary int16
		)
		if err := rows.Scan(&t.Text, &boundary); err != nil {
			return dictionary.Dictionary{}, err
		}
		t.Boundary = censor.Boundary(boundary)
		d.Terms = append(d.Terms, t)
	}
	if err := rows.Err(); err != nil {
		return dictionary.Dictionary{}, err
	}

	rows, err = s.db.Query(ctx, `SELECT phrase FROM whitelist ORDER BY id`)
	if err != nil {
		return dictionary.Dictionary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return dictionary.Dictionary{}, err
		}
		d.Whitelist = append(d.Whitelist, phrase)
	}

	return d, rows.Err()
}

// SetTerms replaces all banned terms within a single transaction.
func (s *Store) SetTerms(ctx context.Context, terms []censor.Term) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM banned_terms`); err != nil {
		return err
	}
	if err := insertTerms(ctx, tx, terms, 0); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddTerms appends banned terms after the existing ones. Terms already stored
// keep their position and boundary.
func (s *Store) AddTerms(ctx context.Context, terms []censor.Term) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM banned_terms`).Scan(&next)
	if err != nil {
		return err
	}
	if err := insertTerms(ctx, tx, terms, next); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertTerms(ctx context.Context, tx pgx.Tx, terms []censor.Term, position int) error {
	batch := new(pgx.Batch)
	for i, t := range dictionary.DedupeTerms(terms) {
		batch.Queue(`
			INSERT INTO banned_terms (term, boundary, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (term) DO NOTHING
		`,
			t.Text,
			int16(t.Boundary),
			position+i,
		)
	}

	return tx.SendBatch(ctx, batch).Close()
}

// SetWhitelist replaces the whitelist within a single transaction.
func (s *Store) SetWhitelist(ctx context.Context, phrases []string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM whitelist`); err != nil {
		return err
	}

	batch := new(pgx.Batch)
	for _, ph := range dictionary.DedupePhrases(phrases) {
		batch.Queue(`INSERT INTO whitelist (phrase) VALUES ($1) ON CONFLICT (phrase) DO NOTHING`, ph)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
