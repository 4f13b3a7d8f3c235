package substrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-health-vault/internal/logger"
)

// sqliteSubstrate is the SQLite-backed implementation of [Substrate]. Each
// operation is a single-row statement, so single-key writes are atomic; the
// substrate deliberately offers nothing stronger.
type sqliteSubstrate struct {
	*DB
	logger *logger.Logger
}

// NewSQLiteSubstrate wraps an open [DB] handle as a [Substrate].
func NewSQLiteSubstrate(db *DB, logger *logger.Logger) Substrate {
	return &sqliteSubstrate{DB: db, logger: logger}
}

func (s *sqliteSubstrate) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, getEntry, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		s.logger.Err(err).
			Str("func", "sqliteSubstrate.Get").
			Str("key", key).
			Msg("failed to read entry")
		return "", fmt.Errorf("%w: read %q: %w", ErrSubstrateUnavailable, key, err)
	}

	return value, nil
}

func (s *sqliteSubstrate) Set(ctx context.Context, key, value string) error {
	if _, err := s.DB.ExecContext(ctx, upsertEntry, key, value); err != nil {
		s.logger.Err(err).
			Str("func", "sqliteSubstrate.Set").
			Str("key", key).
			Msg("failed to upsert entry")
		return fmt.Errorf("%w: write %q: %w", ErrSubstrateUnavailable, key, err)
	}

	return nil
}

func (s *sqliteSubstrate) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, deleteEntry, key); err != nil {
		s.logger.Err(err).
			Str("func", "sqliteSubstrate.Delete").
			Str("key", key).
			Msg("failed to delete entry")
		return fmt.Errorf("%w: delete %q: %w", ErrSubstrateUnavailable, key, err)
	}

	return nil
}

func (s *sqliteSubstrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, listKeysByPrefix, escapeLike(prefix)+"%")
	if err != nil {
		s.logger.Err(err).
			Str("func", "sqliteSubstrate.Keys").
			Str("prefix", prefix).
			Msg("failed to enumerate keys")
		return nil, fmt.Errorf("%w: enumerate %q: %w", ErrSubstrateUnavailable, prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: scan key row: %w", ErrSubstrateUnavailable, err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate key rows: %w", ErrSubstrateUnavailable, err)
	}

	return keys, nil
}

// escapeLike neutralises LIKE metacharacters in prefix so that keys
// containing '%' or '_' enumerate literally.
func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}
