package shortener

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinylink-dev/tinylink/internal/errx"
)

func newTestSQLiteRepo(t *testing.T) Repository {
	t.Helper()

	repo, db, err := OpenSQLiteRepository(context.Background(), ":memory:", nil)
	require.NoError(t, err, "open in-memory sqlite")
	t.Cleanup(func() { db.Close() })
	return repo
}

func TestSQLiteRepo_InsertAndFind(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, Link{ShortCode: "abc123", OriginalURL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", created.ShortCode)
	assert.Equal(t, int64(0), created.TotalClicks)
	assert.Nil(t, created.LastClicked)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "https://example.com/page", found.OriginalURL)

	byURL, err := repo.FindByURL(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byURL.ID)
}

func TestSQLiteRepo_UniqueShortCode(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, Link{ShortCode: "dup1", OriginalURL: "https://a.com"})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, Link{ShortCode: "dup1", OriginalURL: "https://b.com"})
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err), "duplicate short code must map to Conflict")
}

func TestSQLiteRepo_NotFound(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.FindByCode(ctx, "ghost")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))

	_, err = repo.FindByURL(ctx, "https://nope.com")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))

	_, err = repo.IncrementAndTouch(ctx, "ghost")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestSQLiteRepo_ExistsByCode(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	exists, err := repo.ExistsByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Insert(ctx, Link{ShortCode: "abc123", OriginalURL: "https://a.com"})
	require.NoError(t, err)

	exists, err = repo.ExistsByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLiteRepo_IncrementAndTouch(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, Link{ShortCode: "abc123", OriginalURL: "example.com/page"})
	require.NoError(t, err)

	url, err := repo.IncrementAndTouch(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "example.com/page", url, "stored url returned unmodified")

	link, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.TotalClicks)
	require.NotNil(t, link.LastClicked)
	assert.WithinDuration(t, time.Now(), *link.LastClicked, time.Minute)
}

func TestSQLiteRepo_ConcurrentIncrements(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, Link{ShortCode: "hot", OriginalURL: "https://example.com/hot"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	errChan := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementAndTouch(ctx, "hot"); err != nil {
				errChan <- err
			}
		}()
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Errorf("concurrent IncrementAndTouch error: %v", err)
	}

	link, err := repo.FindByCode(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, int64(n), link.TotalClicks, "no lost updates")
}

func TestSQLiteRepo_ListAll(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	links, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	for _, code := range []string{"one", "two", "three"} {
		_, err := repo.Insert(ctx, Link{ShortCode: code, OriginalURL: "https://" + code + ".com"})
		require.NoError(t, err)
	}

	links, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)

	// Newest first.
	assert.Equal(t, "three", links[0].ShortCode)
	assert.Equal(t, "one", links[2].ShortCode)
}

func TestSQLiteRepo_DeleteByCode(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, Link{ShortCode: "gone", OriginalURL: "https://a.com"})
	require.NoError(t, err)

	deleted, err := repo.DeleteByCode(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.FindByCode(ctx, "gone")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))

	deleted, err = repo.DeleteByCode(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports nothing removed")
}

func TestSQLiteRepo_Ping(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
