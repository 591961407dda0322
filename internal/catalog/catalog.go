// Package catalog holds the immutable joke collection the server
// serves from.  A Catalog is loaded exactly once at startup and is
// read-only afterwards, so every session may share it without locking.
package catalog

import (
	"context"

	errs "knockd/internal/errors"
	"knockd/util"
)

// Joke is a single (setup, punchline) pair.  Never mutated after load.
type Joke struct {
	Setup     string
	Punchline string
}

// Source produces the joke rows at startup.  The persistence mechanism
// behind it is opaque to the rest of the server.
type Source interface {
	// Jokes returns zero or more (setup, punchline) pairs.
	Jokes(ctx context.Context) ([]Joke, error)
}

// Catalog is the loaded, immutable joke collection.
type Catalog struct {
	jokes []Joke
}

// Load reads all rows from src, dropping rows with an empty setup or
// punchline.  An empty result is a startup-fatal condition and returns
// ErrCatalogEmpty.
func Load(ctx context.Context, src Source, logger *util.Logger) (*Catalog, error) {
	rows, err := src.Jokes(ctx)
	if err != nil {
		return nil, err
	}

	jokes := make([]Joke, 0, len(rows))
	for i, j := range rows {
		if j.Setup == "" || j.Punchline == "" {
			logger.Warn("skipping joke row %d: empty setup or punchline", i)
			continue
		}
		jokes = append(jokes, j)
	}
	if len(jokes) == 0 {
		return nil, errs.ErrCatalogEmpty
	}

	logger.Verbose("loaded %d jokes", len(jokes))
	return &Catalog{jokes: jokes}, nil
}

// Size returns the number of jokes in the catalog.
func (c *Catalog) Size() int { return len(c.jokes) }

// Get returns the joke at index i.
func (c *Catalog) Get(i int) Joke { return c.jokes[i] }

// SliceSource serves a fixed in-memory list of jokes.  Used by tests
// and as a fallback when no database is configured.
type SliceSource []Joke

// Jokes returns the slice as-is.
func (s SliceSource) Jokes(context.Context) ([]Joke, error) {
	return []Joke(s), nil
}
