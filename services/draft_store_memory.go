package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

// MemoryDraftStore is the in-process fallback used when no Redis address is
// configured (local development) and by the test suite. Values are kept as
// marshalled JSON so reads hand out copies, matching the Redis store's
// isolation. Expired entries are reaped lazily on access.
type MemoryDraftStore struct {
	mu      sync.Mutex
	entries map[string]memoryDraftEntry
	now     func() time.Time
}

type memoryDraftEntry struct {
	raw       []byte
	expiresAt time.Time
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		entries: make(map[string]memoryDraftEntry),
		now:     time.Now,
	}
}

// live returns the entry for draftID if it exists and has not expired.
// Callers must hold mu.
func (s *MemoryDraftStore) live(draftID string) (memoryDraftEntry, bool) {
	entry, ok := s.entries[draftID]
	if !ok {
		return memoryDraftEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, draftID)
		return memoryDraftEntry{}, false
	}
	return entry, true
}

func (s *MemoryDraftStore) Create(_ context.Context, draft *models.Draft, ttl time.Duration) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", draft.DraftID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(draft.DraftID); ok {
		return ErrDuplicateDraft
	}
	s.entries[draft.DraftID] = memoryDraftEntry{raw: raw, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryDraftStore) Get(_ context.Context, draftID string) (*models.Draft, error) {
	s.mu.Lock()
	entry, ok := s.live(draftID)
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var draft models.Draft
	if err := json.Unmarshal(entry.raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", draftID, err)
	}
	return &draft, nil
}

func (s *MemoryDraftStore) Update(_ context.Context, draftID string, mutate func(*models.Draft)) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(draftID)
	if !ok {
		return nil, ErrNotFound
	}

	var draft models.Draft
	if err := json.Unmarshal(entry.raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", draftID, err)
	}

	mutate(&draft)

	raw, err := json.Marshal(&draft)
	if err != nil {
		return nil, fmt.Errorf("encode draft %s: %w", draftID, err)
	}
	s.entries[draftID] = memoryDraftEntry{raw: raw, expiresAt: entry.expiresAt}
	return &draft, nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, draftID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(draftID); !ok {
		return false, nil
	}
	delete(s.entries, draftID)
	return true, nil
}
