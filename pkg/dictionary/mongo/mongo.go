package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
)

const (
	termsCollection     = "terms"
	whitelistCollection = "whitelist"
)

type termDoc struct {
	Term     string          `bson:"_id"`
	Boundary censor.Boundary `bson:"boundary"`
	Position int             `bson:"position"`
}

type phraseDoc struct {
	Phrase   string `bson:"_id"`
	Position int    `bson:"position"`
}

// Storage keeps the dictionary in the terms and whitelist collections. The
// term or phrase itself is the document id.
type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	return &Storage{client: client, dbName: conf.DBName}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

func (s *Storage) coll(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

// Dictionary returns the terms and phrases in their registration order.
func (s *Storage) Dictionary(ctx context.Context) (dictionary.Dictionary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cur, err := s.coll(termsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return dictionary.Dictionary{}, err
	}
	var terms []termDoc
	if err := cur.All(ctx, &terms); err != nil {
		return dictionary.Dictionary{}, err
	}

	cur, err = s.coll(whitelistCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return dictionary.Dictionary{}, err
	}
	var phrases []phraseDoc
	if err := cur.All(ctx, &phrases); err != nil {
		return dictionary.Dictionary{}, err
	}

	d := dictionary.Dictionary{
		Terms:     make([]censor.Term, 0, len(terms)),
		Whitelist: make([]string, 0, len(phrases)),
	}
	for _, t := range terms {
		d.Terms = append(d.Terms, censor.Term{Text: t.Term, Boundary: t.Boundary})
	}
	for _, ph := range phrases {
		d.Whitelist = append(d.Whitelist, ph.Phrase)
	}

	return d, nil
}

// SetTerms replaces all banned terms.
func (s *Storage) SetTerms(ctx context.Context, terms []censor.Term) error {
	coll := s.coll(termsCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}

	return s.upsertTerms(ctx, terms, 0)
}

// AddTerms appends banned terms after the existing ones. Terms already stored
// keep their position and boundary.
func (s *Storage) AddTerms(ctx context.Context, terms []censor.Term) error {
	next, err := s.nextPosition(ctx, termsCollection)
	if err != nil {
		return err
	}

	return s.upsertTerms(ctx, terms, next)
}

func (s *Storage) upsertTerms(ctx context.Context, terms []censor.Term, position int) error {
	terms = dictionary.DedupeTerms(terms)
	if len(terms) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(terms))
	for i, t := range terms {
		doc := termDoc{Term: t.Text, Boundary: t.Boundary, Position: position + i}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": doc.Term}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"boundary": doc.Boundary, "position": doc.Position}}).
			SetUpsert(true))
	}

	_, err := s.coll(termsCollection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

// SetWhitelist replaces the whitelist.
func (s *Storage) SetWhitelist(ctx context.Context, phrases []string) error {
	coll := s.coll(whitelistCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}

	phrases = dictionary.DedupePhrases(phrases)
	if len(phrases) == 0 {
		return nil
	}

	docs := make([]any, 0, len(phrases))
	for i, ph := range phrases {
		docs = append(docs, phraseDoc{Phrase: ph, Position: i})
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

func (s *Storage) nextPosition(ctx context.Context, collection string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})

	var last termDoc
	err := s.coll(collection).FindOne(ctx, bson.M{}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return last.Position + 1, nil
}
