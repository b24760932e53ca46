package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Link is a short-code to URL mapping.
//
// ShortCode is unique across all links and immutable after creation;
// TotalClicks only moves up, and only through IncrementAndTouch.
type Link struct {
	ID          uuid.UUID
	ShortCode   string
	OriginalURL string
	TotalClicks int64
	LastClicked *time.Time
	CreatedAt   time.Time
}
