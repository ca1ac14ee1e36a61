package models

import "time"

type DraftStatus string

const (
	DraftPending  DraftStatus = "pending"
	DraftComplete DraftStatus = "complete"
	DraftFailed   DraftStatus = "failed"
)

// Draft tracks one in-flight meal generation. The draft store holds the only
// live copy; the generation worker is the only writer that moves Status away
// from pending. Meal is set only on complete, Error only on failed.
type Draft struct {
	DraftID   string            `json:"draftId"`
	UID       string            `json:"uid"`
	Status    DraftStatus       `json:"status"`
	Meal      *NutritionProfile `json:"meal"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
