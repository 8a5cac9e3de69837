package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"censorship/pkg/dictionary"
	"censorship/pkg/dictionary/memdb"
	"censorship/pkg/dictionary/mongo"
	"censorship/pkg/dictionary/postgres"
	"censorship/pkg/dictionary/remote"
)

// openSource returns the configured dictionary source and the store that
// receives edits made through the API. Read-only sources are mirrored into
// an in-memory store, so edits live until restart.
func openSource(ctx context.Context, cfg Config) (dictionary.Source, dictionary.Store, func(), error) {
	noop := func() {}

	switch cfg.Source {
	case "", "file":
		return mirror(ctx, dictionary.FileSource{Path: cfg.CensorConfPath})

	case "remote":
		if cfg.RemoteURL == "" {
			return nil, nil, noop, fmt.Errorf("remoteURL is not set")
		}
		return mirror(ctx, remote.New(cfg.RemoteURL))

	case "postgres":
		if !cfg.Postgres.IsValid() {
			return nil, nil, noop, fmt.Errorf("invalid postgres config: %s", cfg.Postgres)
		}
		db, err := postgres.New(ctx, cfg.Postgres.ConString())
		if err != nil {
			return nil, nil, noop, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("%w: %v", dictionary.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to postgres: %s", cfg.Postgres)
		return db, db, db.Close, nil

	case "mongo":
		conf, err := mongo.NewConfig()
		if err != nil {
			return nil, nil, noop, err
		}
		db, err := mongo.New(ctx, conf)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := db.Ping(ctx); err != nil {
			// ctx may be the one that expired
			db.Close(context.Background())
			return nil, nil, noop, fmt.Errorf("%w: %v", dictionary.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to mongo at %s:%s", conf.Host, conf.Port)
		return db, db, func() { db.Close(context.Background()) }, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown dictionary source %q", cfg.Source)
}

func mirror(ctx context.Context, src dictionary.Source) (dictionary.Source, dictionary.Store, func(), error) {
	d, err := src.Dictionary(ctx)
	if err != nil {
		return nil, nil, func() {}, err
	}

	store := memdb.New()
	if err := store.SetTerms(ctx, d.Terms); err != nil {
		return nil, nil, func() {}, err
	}
	if err := store.SetWhitelist(ctx, d.Whitelist); err != nil {
		return nil, nil, func() {}, err
	}

	return store, store, func() {}, nil
}
