package shortener

import (
	"context"
	"time"
)

// timeoutRepo bounds every store call so a hung store fails the request
// as Unavailable instead of hanging it. Timeouts surface through the
// underlying repository's error mapping.
type timeoutRepo struct {
	inner   Repository
	timeout time.Duration
}

// WithTimeout wraps repo so each call runs under its own deadline.
// A non-positive timeout returns repo unchanged.
func WithTimeout(repo Repository, timeout time.Duration) Repository {
	if timeout <= 0 {
		return repo
	}
	return &timeoutRepo{inner: repo, timeout: timeout}
}

func (r *timeoutRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *timeoutRepo) Insert(ctx context.Context, link Link) (Link, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.Insert(ctx, link)
}

func (r *timeoutRepo) FindByCode(ctx context.Context, code string) (Link, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.FindByCode(ctx, code)
}

func (r *timeoutRepo) FindByURL(ctx context.Context, url string) (Link, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.FindByURL(ctx, url)
}

func (r *timeoutRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.ExistsByCode(ctx, code)
}

func (r *timeoutRepo) IncrementAndTouch(ctx context.Context, code string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.IncrementAndTouch(ctx, code)
}

func (r *timeoutRepo) ListAll(ctx context.Context) ([]Link, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.ListAll(ctx)
}

func (r *timeoutRepo) DeleteByCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.DeleteByCode(ctx, code)
}

func (r *timeoutRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.inner.Ping(ctx)
}
