package services

import (
	"context"
	"time"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

// DraftStore is an expiring key-value store over drafts. It is the system of
// record for in-flight generation work, so its per-key guarantees carry the
// whole lifecycle:
//
//   - Create refuses to overwrite an existing draft id.
//   - Update applies the mutator atomically with respect to concurrent updates
//     of the same draft, and reports ErrNotFound when the draft has been
//     deleted or expired (the caller discards its result).
//   - Delete reports whether this caller removed the entry, making it usable
//     as a consume primitive: under a race, exactly one caller sees true.
//
// Entries not deleted explicitly expire after their ttl so abandoned drafts
// cannot accumulate.
type DraftStore interface {
	Create(ctx context.Context, draft *models.Draft, ttl time.Duration) error
	Get(ctx context.Context, draftID string) (*models.Draft, error)
	Update(ctx context.Context, draftID string, mutate func(*models.Draft)) (*models.Draft, error)
	Delete(ctx context.Context, draftID string) (bool, error)
}
