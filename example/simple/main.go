package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	cache "github.com/skynet2/document-cache"
)

// User is a sample model; any type with a stable identifier works.
type User struct {
	ID    string
	Name  string
	Email string
}

func (u User) ModelID() string {
	return u.ID
}

func main() {
	ctx := log.Logger.Level(zerolog.InfoLevel).WithContext(context.Background())

	dir, err := os.MkdirTemp("", "document-cache-example")
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	defer func() {
		_ = os.RemoveAll(dir)
	}()

	// The sqlite source stands in for the remote document database.
	source, err := cache.OpenSQLiteSource[string](filepath.Join(dir, "docs.db"))
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	defer func() {
		_ = source.Close()
	}()

	seed := map[string]interface{}{
		"u1": User{ID: "u1", Name: "Ada", Email: "ada@example.com"},
		"u2": User{ID: "u2", Name: "Grace", Email: "grace@example.com"},
		"u3": User{ID: "u3", Name: "Edsger", Email: "edsger@example.com"},
	}

	if err = source.Insert(ctx, seed); err != nil {
		log.Fatal().Err(err).Send()
	}

	ch := cache.NewCacheBuilder[User, string](source, cache.MsgpackMaterializer[User, string]()).
		Build()

	sub := ch.Subscribe(func(updates []cache.UpdateRecord[string]) {
		for _, u := range updates {
			fmt.Printf("observer: %s %s\n", u.ID, u.Kind)
		}
	})

	defer ch.Unsubscribe(sub)

	// First read fans out to the source and publishes one "fetched" batch.
	users, err := ch.GetByIDs(ctx, []string{"u1", "u2", "u3"}, cache.GetOptions{Notify: true})
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	for _, u := range users {
		fmt.Printf("fetched: %s (%s)\n", u.Name, u.Email)
	}

	// Second read is served entirely from the store, no source round trip.
	u1, err := ch.GetByID(ctx, "u1", cache.GetOptions{})
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	fmt.Printf("cache hit: %s\n", u1.Name)

	// A write through a separate path keeps the store consistent explicitly.
	if err = source.Delete(ctx, "u2"); err != nil {
		log.Fatal().Err(err).Send()
	}

	ch.RecordDeleted([]string{"u2"})
	ch.Notify(cache.ChangeDeleted, "u2")
}
