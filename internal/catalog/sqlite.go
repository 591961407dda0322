package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource reads jokes from a SQLite database with the schema
//
//	CREATE TABLE jokes (id INTEGER PRIMARY KEY, setup TEXT, punchline TEXT);
//
// The database is opened read-only and only touched once, at startup.
type SQLiteSource struct {
	Path string
}

// Jokes loads every (setup, punchline) row from the jokes table.
func (s *SQLiteSource) Jokes(ctx context.Context) ([]Joke, error) {
	// mode=ro makes a missing file an open error instead of silently
	// creating an empty database.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.Path))
	if err != nil {
		return nil, fmt.Errorf("open joke database %s: %w", s.Path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT setup, punchline FROM jokes")
	if err != nil {
		return nil, fmt.Errorf("query jokes from %s: %w", s.Path, err)
	}
	defer rows.Close()

	var jokes []Joke
	for rows.Next() {
		var j Joke
		if err := rows.Scan(&j.Setup, &j.Punchline); err != nil {
			return nil, fmt.Errorf("scan joke row: %w", err)
		}
		jokes = append(jokes, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read jokes: %w", err)
	}
	return jokes, nil
}
