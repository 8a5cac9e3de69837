package mongo

import (
	"context"

	"censorship/pkg/dictionary"
)

var MongoTestConf = &Config{
	Host:   "localhost",
	Port:   "27018",
	DBName: "dictionary_test",
}

// StorageConnect is a helper function that establishes a connection to the predefined test Mongo instance.
// It returns a connected Storage object or an error if connection fails.
func StorageConnect(ctx context.Context) (*Storage, error) {
	conf := MongoTestConf
	db, err := New(ctx, conf)
	if err != nil {
		return nil, dictionary.ErrConnectDB
	}

	err = db.Ping(ctx)
	if err != nil {
		return nil, dictionary.ErrDBNotResponding
	}

	return db, nil
}

// RestoreDB drops the dictionary collections to reset the database state.
// WARNING: Use only in tests to avoid data loss.
func RestoreDB(ctx context.Context, db *Storage) error {
	for _, name := range []string{termsCollection, whitelistCollection} {
		if err := db.coll(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
