package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TomMcKenna1/nutrilytics-backend/config"
	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

const (
	// Drafts that are never collected or deleted expire on their own.
	draftTTL = time.Hour

	generationTimeout = 90 * time.Second
)

// MealSaver is the slice of the permanent store a promotion needs: writing
// the new meal, and removing it again if the promotion loses the commit race.
type MealSaver interface {
	SaveFromProfile(ctx context.Context, uid string, p *models.NutritionProfile) (*models.Meal, error)
	Delete(ctx context.Context, uid, mealID string) error
}

// DraftService orchestrates the draft lifecycle: create, poll, delete and
// promote. It enforces ownership on every read and leaves terminal status
// transitions to the generation worker it dispatches.
type DraftService struct {
	store      DraftStore
	generator  MealGenerator
	meals      MealSaver
	hub        *RealtimeHub // optional
	genTimeout time.Duration
}

func NewDraftService(store DraftStore, generator MealGenerator, meals MealSaver, hub *RealtimeHub) *DraftService {
	return &DraftService{
		store:      store,
		generator:  generator,
		meals:      meals,
		hub:        hub,
		genTimeout: generationTimeout,
	}
}

// Create stores a pending draft and kicks off generation in the background.
// The caller gets the draft id back immediately; completion is observed by
// polling or over the realtime channel.
func (s *DraftService) Create(ctx context.Context, identity *models.Identity, description string) (string, error) {
	draft := &models.Draft{
		DraftID:   uuid.NewString(),
		UID:       identity.UID,
		Status:    models.DraftPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, draft, draftTTL); err != nil {
		return "", err
	}
	config.Log.Infof("user %s created meal draft %s", identity.UID, draft.DraftID)

	go s.generate(draft.DraftID, draft.UID, description)

	return draft.DraftID, nil
}

// generate runs on its own goroutine with its own deadline; the request that
// dispatched it has usually already returned. Exactly one terminal update is
// written per draft, and a result whose draft has been deleted in the
// meantime is discarded rather than resurrected.
func (s *DraftService) generate(draftID, uid, description string) {
	genCtx, cancel := context.WithTimeout(context.Background(), s.genTimeout)
	defer cancel()

	config.Log.Infof("starting meal generation for draft %s", draftID)
	profile, genErr := s.generator.Generate(genCtx, description)

	// A generation that ran out its deadline is a failure like any other, but
	// genCtx is spent by then; the terminal write needs its own context or the
	// store would refuse it and strand the draft as pending.
	ctx, cancelWrite := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWrite()

	var updated *models.Draft
	var err error
	if genErr != nil {
		config.Log.Errorf("meal generation failed for draft %s: %v", draftID, genErr)
		updated, err = s.store.Update(ctx, draftID, func(d *models.Draft) {
			d.Status = models.DraftFailed
			d.Meal = nil
			d.Error = genErr.Error()
		})
	} else {
		updated, err = s.store.Update(ctx, draftID, func(d *models.Draft) {
			d.Status = models.DraftComplete
			d.Meal = profile
			d.Error = ""
		})
	}

	if errors.Is(err, ErrNotFound) {
		config.Log.Warnf("draft %s was deleted before generation completed, discarding result", draftID)
		return
	}
	if err != nil {
		config.Log.Errorf("failed to record generation outcome for draft %s: %v", draftID, err)
		return
	}

	if s.hub != nil {
		kind := DraftCompletedEvent
		if updated.Status == models.DraftFailed {
			kind = DraftFailedEvent
		}
		s.hub.BroadcastDraftEvent(uid, kind, draftID)
	}
	config.Log.Infof("finished meal generation for draft %s (status %s)", draftID, updated.Status)
}

// Get returns the draft after enforcing ownership.
func (s *DraftService) Get(ctx context.Context, identity *models.Identity, draftID string) (*models.Draft, error) {
	draft, err := s.store.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.UID != identity.UID {
		config.Log.Warnf("user %s forbidden from accessing draft %s", identity.UID, draftID)
		return nil, ErrForbidden
	}
	return draft, nil
}

// Delete removes the draft regardless of status. A generation still in flight
// will find the draft gone and discard its result.
func (s *DraftService) Delete(ctx context.Context, identity *models.Identity, draftID string) error {
	if _, err := s.Get(ctx, identity, draftID); err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, draftID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	config.Log.Infof("user %s deleted draft %s", identity.UID, draftID)
	return nil
}

// Promote converts a completed draft into a permanent meal. The conditional
// draft delete after the permanent write is the commit point: whichever
// caller removes the key wins, and a racing promote that finds the key
// already gone rolls back its own meal row and reports NotFound. At most one
// promotion per draft id can therefore succeed.
func (s *DraftService) Promote(ctx context.Context, identity *models.Identity, draftID string) (*models.Meal, error) {
	draft, err := s.Get(ctx, identity, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftComplete || draft.Meal == nil {
		return nil, ErrDraftNotComplete
	}

	meal, err := s.meals.SaveFromProfile(ctx, draft.UID, draft.Meal)
	if err != nil {
		return nil, fmt.Errorf("save meal from draft %s: %w", draftID, err)
	}

	deleted, err := s.store.Delete(ctx, draftID)
	if err != nil {
		// The meal is saved but the draft could not be removed; make the
		// draft non-promotable so a retry cannot produce a second meal.
		config.Log.Errorf("failed to consume draft %s after saving meal %s: %v", draftID, meal.ID, err)
		s.quarantine(draftID)
		return meal, nil
	}
	if !deleted {
		// Lost the commit race against a concurrent promote or delete.
		config.Log.Warnf("draft %s consumed concurrently, rolling back duplicate meal %s", draftID, meal.ID)
		if delErr := s.meals.Delete(ctx, draft.UID, meal.ID); delErr != nil {
			config.Log.Errorf("failed to roll back duplicate meal %s: %v", meal.ID, delErr)
		}
		return nil, ErrNotFound
	}

	config.Log.Infof("user %s promoted draft %s to meal %s", identity.UID, draftID, meal.ID)
	return meal, nil
}

// quarantine rewrites a draft as failed so it can never be promoted again.
// Used when the post-save delete fails; the draft then ages out via its TTL.
func (s *DraftService) quarantine(draftID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.store.Update(ctx, draftID, func(d *models.Draft) {
		d.Status = models.DraftFailed
		d.Meal = nil
		d.Error = "meal already saved"
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		config.Log.Errorf("draft %s may still be promotable after meal save: %v", draftID, err)
	}
}
