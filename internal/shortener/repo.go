package shortener

import "context"

// Repository is the persistence contract for links. Implementations must
// enforce a uniqueness constraint on the short code (the race-closing
// authority for concurrent creates) and perform IncrementAndTouch as a
// single atomic store operation.
type Repository interface {
	// Insert persists a new link. Returns a Conflict-kind error when the
	// short code is already taken.
	Insert(ctx context.Context, link Link) (Link, error)

	// FindByCode returns the link for a short code, NotFound when absent.
	FindByCode(ctx context.Context, code string) (Link, error)

	// FindByURL returns the link for an original URL, NotFound when
	// absent. Used for the duplicate-URL idempotence check.
	FindByURL(ctx context.Context, url string) (Link, error)

	// ExistsByCode reports whether a short code is taken.
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// IncrementAndTouch atomically bumps the click counter, stamps the
	// last-clicked time, and returns the original URL. NotFound when the
	// code does not exist; nothing is mutated in that case.
	IncrementAndTouch(ctx context.Context, code string) (string, error)

	// ListAll returns every link, newest first.
	ListAll(ctx context.Context) ([]Link, error)

	// DeleteByCode removes a link, reporting whether a row was deleted.
	DeleteByCode(ctx context.Context, code string) (bool, error)

	// Ping verifies store connectivity with a trivial round-trip.
	Ping(ctx context.Context) error
}
