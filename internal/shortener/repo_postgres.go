package shortener

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinylink-dev/tinylink/internal/errx"
	"github.com/tinylink-dev/tinylink/internal/idgen"
)

// postgresSchema creates the links table. Applied at startup; safe to run
// repeatedly. The unique constraint on short_code closes the create race.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS links (
    id            UUID PRIMARY KEY,
    short_code    VARCHAR(10) NOT NULL,
    original_url  TEXT NOT NULL,
    total_clicks  BIGINT NOT NULL DEFAULT 0,
    last_clicked  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),

    CONSTRAINT links_short_code_unique UNIQUE (short_code)
);

CREATE INDEX IF NOT EXISTS idx_links_short_code ON links (short_code);
`

// MigratePostgres applies the links schema.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, postgresSchema)
	return err
}

type postgresRepo struct {
	pool *pgxpool.Pool
	ids  idgen.Generator
}

// PostgresRepositoryConfig holds configuration for the Postgres repository.
type PostgresRepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewPostgresRepository returns a Repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool, config *PostgresRepositoryConfig) Repository {
	if config == nil {
		config = &PostgresRepositoryConfig{}
	}

	// Default: UUID v7 for index locality.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &postgresRepo{
		pool: pool,
		ids:  config.IDGenerator,
	}
}

func mapPostgresError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isShortCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return errx.E(op, errx.Unavailable, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func scanLink(row pgx.Row) (Link, error) {
	var (
		link        Link
		lastClicked *time.Time
	)
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.TotalClicks,
		&lastClicked,
		&link.CreatedAt,
	)
	if err != nil {
		return Link{}, err
	}
	link.LastClicked = lastClicked
	return link, nil
}

const linkColumns = `id, short_code, original_url, total_clicks, last_clicked, created_at`

func (r *postgresRepo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.postgres.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO links (id, short_code, original_url)
		 VALUES ($1, $2, $3)
		 RETURNING `+linkColumns,
		link.ID, link.ShortCode, link.OriginalURL,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return created, nil
}

func (r *postgresRepo) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.postgres.FindByCode"

	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = $1`, code)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return link, nil
}

func (r *postgresRepo) FindByURL(ctx context.Context, url string) (Link, error) {
	const op = "shortener.postgres.FindByURL"

	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE original_url = $1
		 ORDER BY created_at ASC LIMIT 1`, url)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return link, nil
}

func (r *postgresRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const op = "shortener.postgres.ExistsByCode"

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, mapPostgresError(op, err)
	}
	return exists, nil
}

func (r *postgresRepo) IncrementAndTouch(ctx context.Context, code string) (string, error) {
	const op = "shortener.postgres.IncrementAndTouch"

	var originalURL string
	err := r.pool.QueryRow(ctx,
		`UPDATE links
		 SET total_clicks = total_clicks + 1, last_clicked = now()
		 WHERE short_code = $1
		 RETURNING original_url`, code).Scan(&originalURL)
	if err != nil {
		return "", mapPostgresError(op, err)
	}
	return originalURL, nil
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]Link, error) {
	const op = "shortener.postgres.ListAll"

	rows, err := r.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapPostgresError(op, err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapPostgresError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(op, err)
	}
	return links, nil
}

func (r *postgresRepo) DeleteByCode(ctx context.Context, code string) (bool, error) {
	const op = "shortener.postgres.DeleteByCode"

	tag, err := r.pool.Exec(ctx, `DELETE FROM links WHERE short_code = $1`, code)
	if err != nil {
		return false, mapPostgresError(op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	const op = "shortener.postgres.Ping"

	if err := r.pool.Ping(ctx); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}
