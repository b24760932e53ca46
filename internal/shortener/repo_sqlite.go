package shortener

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tinylink-dev/tinylink/internal/errx"
	"github.com/tinylink-dev/tinylink/internal/idgen"
)

// sqliteSchema mirrors the Postgres layout. The UNIQUE constraint on
// short_code is still the race-closing authority; SQLite serializes
// writers, which also makes the click increment atomic.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
    id            TEXT PRIMARY KEY,
    short_code    TEXT NOT NULL UNIQUE,
    original_url  TEXT NOT NULL,
    total_clicks  INTEGER NOT NULL DEFAULT 0,
    last_clicked  TIMESTAMP,
    created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_short_code ON links (short_code);
`

type sqliteRepo struct {
	db  *sql.DB
	ids idgen.Generator
}

// SQLiteRepositoryConfig holds configuration for the SQLite repository.
type SQLiteRepositoryConfig struct {
	IDGenerator idgen.Generator
}

// OpenSQLiteRepository opens (or creates) the SQLite database at path,
// applies the schema, and returns the repository with the owned handle.
// The caller closes the *sql.DB at shutdown.
func OpenSQLiteRepository(ctx context.Context, path string, config *SQLiteRepositoryConfig) (Repository, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}

	// A single writer connection avoids SQLITE_BUSY under concurrent
	// increments; reads still interleave through the same connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, nil, err
	}

	return NewSQLiteRepository(db, config), db, nil
}

// NewSQLiteRepository returns a Repository over an already-open handle.
// The schema must exist.
func NewSQLiteRepository(db *sql.DB, config *SQLiteRepositoryConfig) Repository {
	if config == nil {
		config = &SQLiteRepositoryConfig{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}
	return &sqliteRepo{db: db, ids: config.IDGenerator}
}

func mapSQLiteError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isSQLiteUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func scanSQLiteLink(row *sql.Row) (Link, error) {
	var (
		link        Link
		id          string
		lastClicked sql.NullTime
	)
	err := row.Scan(&id, &link.ShortCode, &link.OriginalURL, &link.TotalClicks, &lastClicked, &link.CreatedAt)
	if err != nil {
		return Link{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Link{}, err
	}
	link.ID = parsed

	if lastClicked.Valid {
		t := lastClicked.Time
		link.LastClicked = &t
	}
	return link, nil
}

func (r *sqliteRepo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.sqlite.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	createdAt := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO links (id, short_code, original_url, total_clicks, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		link.ID.String(), link.ShortCode, link.OriginalURL, createdAt,
	)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}

	link.TotalClicks = 0
	link.LastClicked = nil
	link.CreatedAt = createdAt
	return link, nil
}

func (r *sqliteRepo) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.sqlite.FindByCode"

	row := r.db.QueryRowContext(ctx,
		`SELECT id, short_code, original_url, total_clicks, last_clicked, created_at
		 FROM links WHERE short_code = ?`, code)

	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepo) FindByURL(ctx context.Context, url string) (Link, error) {
	const op = "shortener.sqlite.FindByURL"

	row := r.db.QueryRowContext(ctx,
		`SELECT id, short_code, original_url, total_clicks, last_clicked, created_at
		 FROM links WHERE original_url = ?
		 ORDER BY created_at ASC LIMIT 1`, url)

	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const op = "shortener.sqlite.ExistsByCode"

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE short_code = ?)`, code).Scan(&exists)
	if err != nil {
		return false, mapSQLiteError(op, err)
	}
	return exists, nil
}

func (r *sqliteRepo) IncrementAndTouch(ctx context.Context, code string) (string, error) {
	const op = "shortener.sqlite.IncrementAndTouch"

	// Single-statement read-modify-write; no lost updates under
	// concurrent redirects.
	res, err := r.db.ExecContext(ctx,
		`UPDATE links
		 SET total_clicks = total_clicks + 1, last_clicked = ?
		 WHERE short_code = ?`,
		time.Now().UTC(), code)
	if err != nil {
		return "", mapSQLiteError(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", mapSQLiteError(op, err)
	}
	if affected == 0 {
		return "", errx.E(op, errx.NotFound, sql.ErrNoRows)
	}

	// original_url is immutable, so the follow-up read is race-free.
	var originalURL string
	err = r.db.QueryRowContext(ctx,
		`SELECT original_url FROM links WHERE short_code = ?`, code).Scan(&originalURL)
	if err != nil {
		return "", mapSQLiteError(op, err)
	}
	return originalURL, nil
}

func (r *sqliteRepo) ListAll(ctx context.Context) ([]Link, error) {
	const op = "shortener.sqlite.ListAll"

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, short_code, original_url, total_clicks, last_clicked, created_at
		 FROM links ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapSQLiteError(op, err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var (
			link        Link
			id          string
			lastClicked sql.NullTime
		)
		if err := rows.Scan(&id, &link.ShortCode, &link.OriginalURL, &link.TotalClicks, &lastClicked, &link.CreatedAt); err != nil {
			return nil, mapSQLiteError(op, err)
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		link.ID = parsed

		if lastClicked.Valid {
			t := lastClicked.Time
			link.LastClicked = &t
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(op, err)
	}
	return links, nil
}

func (r *sqliteRepo) DeleteByCode(ctx context.Context, code string) (bool, error) {
	const op = "shortener.sqlite.DeleteByCode"

	res, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = ?`, code)
	if err != nil {
		return false, mapSQLiteError(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, mapSQLiteError(op, err)
	}
	return affected > 0, nil
}

func (r *sqliteRepo) Ping(ctx context.Context) error {
	const op = "shortener.sqlite.Ping"

	if err := r.db.PingContext(ctx); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}
