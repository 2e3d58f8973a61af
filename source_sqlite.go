package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

// SQLiteSource serves documents from a local sqlite database, useful as an
// embedded stand-in for a remote document store in tools and tests. Payloads
// are msgpack blobs keyed by the string form of the identifier. The
// preferCache hint has no effect here; there is no separate caching tier to
// prefer.
type SQLiteSource[K comparable] struct {
	db          *sql.DB
	fanOutLimit int
}

// OpenSQLiteSource opens (creating if needed) the database at path and
// ensures the documents table exists.
func OpenSQLiteSource[K comparable](path string) (*SQLiteSource[K], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}

	if _, err = db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create documents table")
	}

	return &SQLiteSource[K]{
		db:          db,
		fanOutLimit: DefaultFanOutLimit,
	}, nil
}

func (s *SQLiteSource[K]) WithFanOutLimit(limit int) *SQLiteSource[K] {
	if limit > 0 {
		s.fanOutLimit = limit
	}

	return s
}

// FanOutLimit implements Source.
func (s *SQLiteSource[K]) FanOutLimit() int {
	return s.fanOutLimit
}

func (s *SQLiteSource[K]) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *SQLiteSource[K]) keyFor(id K) string {
	return fmt.Sprintf("%v", id)
}

// Run implements Source.
func (s *SQLiteSource[K]) Run(ctx context.Context, query Query[K], preferCache bool) ([]RawDocument, error) {
	_ = preferCache // no separate caching tier behind this source

	ids := query.IDs()

	if len(ids) == 0 {
		return nil, nil
	}

	if len(ids) > s.fanOutLimit {
		return nil, errors.Errorf("query fans out to %d identifiers, limit is %d", len(ids), s.fanOutLimit)
	}

	if query.Single() {
		var payload []byte

		err := s.db.QueryRowContext(ctx, "SELECT payload FROM documents WHERE id = ?", s.keyFor(ids[0])).
			Scan(&payload)

		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, errors.WithStack(err)
		}

		return []RawDocument{payload}, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))

	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, s.keyFor(id))
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT payload FROM documents WHERE id IN (%s)", strings.Join(placeholders, ",")),
		args...)

	if err != nil {
		return nil, errors.WithStack(err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var docs []RawDocument

	for rows.Next() {
		var payload []byte

		if err = rows.Scan(&payload); err != nil {
			return nil, errors.WithStack(err)
		}

		docs = append(docs, payload)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return docs, nil
}

// Insert writes documents as msgpack blobs in one transaction, replacing
// existing payloads for the same identifier.
func (s *SQLiteSource[K]) Insert(ctx context.Context, docs map[K]interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	for id, v := range docs {
		b, err := msgpack.Marshal(v)

		if err != nil {
			_ = tx.Rollback()
			return errors.WithStack(err)
		}

		if _, err = tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO documents (id, payload) VALUES (?, ?)",
			s.keyFor(id), b); err != nil {
			_ = tx.Rollback()
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(tx.Commit())
}

// Delete removes the documents for the given identifiers.
func (s *SQLiteSource[K]) Delete(ctx context.Context, ids ...K) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))

	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, s.keyFor(id))
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM documents WHERE id IN (%s)", strings.Join(placeholders, ",")),
		args...)

	return errors.WithStack(err)
}
