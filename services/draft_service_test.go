package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

type fakeGenerator struct {
	profile *models.NutritionProfile
	err     error
	release chan struct{} // when non-nil, Generate blocks until closed
}

func (g *fakeGenerator) Generate(ctx context.Context, _ string) (*models.NutritionProfile, error) {
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.profile, g.err
}

type fakeMealStore struct {
	mu    sync.Mutex
	saved map[string]*models.Meal
}

func newFakeMealStore() *fakeMealStore {
	return &fakeMealStore{saved: make(map[string]*models.Meal)}
}

func (f *fakeMealStore) SaveFromProfile(_ context.Context, uid string, p *models.NutritionProfile) (*models.Meal, error) {
	meal := &models.Meal{
		ID:        uuid.NewString(),
		UID:       uid,
		Name:      p.Name,
		Calories:  p.Calories,
		CreatedAt: time.Now().UTC(),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[meal.ID] = meal
	return meal, nil
}

func (f *fakeMealStore) Delete(_ context.Context, _, mealID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, mealID)
	return nil
}

func (f *fakeMealStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func spaghettiProfile() *models.NutritionProfile {
	return &models.NutritionProfile{
		Name:     "Spaghetti Bolognese",
		Calories: 600,
		Protein:  32,
		Carbs:    70,
		Fat:      20,
		Components: []models.NutritionComponent{
			{Name: "spaghetti", Type: "food", Quantity: 200, Calories: 310},
			{Name: "bolognese sauce", Type: "food", Quantity: 180, Calories: 290},
		},
	}
}

func owner() *models.Identity {
	return &models.Identity{UID: "user-1", Email: "one@example.com", Name: "User One"}
}

func stranger() *models.Identity {
	return &models.Identity{UID: "user-2", Email: "two@example.com", Name: "User Two"}
}

func waitForStatus(t *testing.T, svc *DraftService, id *models.Identity, draftID string, want models.DraftStatus) *models.Draft {
	t.Helper()
	var draft *models.Draft
	require.Eventually(t, func() bool {
		d, err := svc.Get(context.Background(), id, draftID)
		if err != nil {
			return false
		}
		draft = d
		return d.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return draft
}

func TestDraftService_CreateThenComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{profile: spaghettiProfile(), release: make(chan struct{})}
	meals := newFakeMealStore()
	svc := NewDraftService(NewMemoryDraftStore(), gen, meals, nil)

	draftID, err := svc.Create(ctx, owner(), "A bowl of spaghetti bolognese")
	require.NoError(t, err)
	require.NotEmpty(t, draftID)

	// still pending while generation is in flight
	draft, err := svc.Get(ctx, owner(), draftID)
	require.NoError(t, err)
	require.Equal(t, models.DraftPending, draft.Status)
	require.Nil(t, draft.Meal)

	close(gen.release)

	draft = waitForStatus(t, svc, owner(), draftID, models.DraftComplete)
	require.NotNil(t, draft.Meal)
	require.Equal(t, "Spaghetti Bolognese", draft.Meal.Name)
	require.Empty(t, draft.Error)
}

// deadlineSensitiveStore refuses commands once the context is done, the way
// the redis client does.
type deadlineSensitiveStore struct {
	DraftStore
}

func (s deadlineSensitiveStore) Update(ctx context.Context, draftID string, mutate func(*models.Draft)) (*models.Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.DraftStore.Update(ctx, draftID, mutate)
}

func TestDraftService_GenerationTimeoutRecordedAsFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// never released: the generator blocks until its deadline expires
	gen := &fakeGenerator{release: make(chan struct{})}
	svc := NewDraftService(deadlineSensitiveStore{NewMemoryDraftStore()}, gen, newFakeMealStore(), nil)
	svc.genTimeout = 50 * time.Millisecond

	draftID, err := svc.Create(ctx, owner(), "slow stew")
	require.NoError(t, err)

	draft := waitForStatus(t, svc, owner(), draftID, models.DraftFailed)
	require.Nil(t, draft.Meal)
	require.Contains(t, draft.Error, "context deadline exceeded")
}

func TestDraftService_GenerationFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("inference backend exploded")}
	svc := NewDraftService(NewMemoryDraftStore(), gen, newFakeMealStore(), nil)

	draftID, err := svc.Create(ctx, owner(), "mystery stew")
	require.NoError(t, err)

	draft := waitForStatus(t, svc, owner(), draftID, models.DraftFailed)
	require.Nil(t, draft.Meal)
	require.Contains(t, draft.Error, "inference backend exploded")

	// a failed draft is not promotable, and stays around for inspection
	_, err = svc.Promote(ctx, owner(), draftID)
	require.ErrorIs(t, err, ErrDraftNotComplete)
	_, err = svc.Get(ctx, owner(), draftID)
	require.NoError(t, err)
}

func TestDraftService_OwnershipEnforced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{profile: spaghettiProfile(), release: make(chan struct{})}
	svc := NewDraftService(NewMemoryDraftStore(), gen, newFakeMealStore(), nil)

	draftID, err := svc.Create(ctx, owner(), "salad")
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger(), draftID)
	require.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, stranger(), draftID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Promote(ctx, stranger(), draftID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDraftService_PromotePendingConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{profile: spaghettiProfile(), release: make(chan struct{})}
	meals := newFakeMealStore()
	svc := NewDraftService(NewMemoryDraftStore(), gen, meals, nil)

	draftID, err := svc.Create(ctx, owner(), "salad")
	require.NoError(t, err)

	_, err = svc.Promote(ctx, owner(), draftID)
	require.ErrorIs(t, err, ErrDraftNotComplete)
	require.Zero(t, meals.count())

	// conflict must leave the draft untouched
	draft, err := svc.Get(ctx, owner(), draftID)
	require.NoError(t, err)
	require.Equal(t, models.DraftPending, draft.Status)
}

func TestDraftService_PromoteConsumesDraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{profile: spaghettiProfile()}
	meals := newFakeMealStore()
	svc := NewDraftService(NewMemoryDraftStore(), gen, meals, nil)

	draftID, err := svc.Create(ctx, owner(), "spaghetti")
	require.NoError(t, err)
	waitForStatus(t, svc, owner(), draftID, models.DraftComplete)

	meal, err := svc.Promote(ctx, owner(), draftID)
	require.NoError(t, err)
	require.Equal(t, "Spaghetti Bolognese", meal.Name)
	require.Equal(t, owner().UID, meal.UID)
	require.Equal(t, 1, meals.count())

	_, err = svc.Get(ctx, owner(), draftID)
	require.ErrorIs(t, err, ErrNotFound)
	err = svc.Delete(ctx, owner(), draftID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Promote(ctx, owner(), draftID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDraftService_ConcurrentPromoteSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{profile: spaghettiProfile()}
	meals := newFakeMealStore()
	svc := NewDraftService(NewMemoryDraftStore(), gen, meals, nil)

	draftID, err := svc.Create(ctx, owner(), "spaghetti")
	require.NoError(t, err)
	waitForStatus(t, svc, owner(), draftID, models.DraftComplete)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Promote(ctx, owner(), draftID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, notFound int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected promote error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, notFound)
	require.Equal(t, 1, meals.count())
}

func TestDraftService_DeleteDiscardsInflightResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryDraftStore()
	gen := &fakeGenerator{profile: spaghettiProfile(), release: make(chan struct{})}
	svc := NewDraftService(store, gen, newFakeMealStore(), nil)

	draftID, err := svc.Create(ctx, owner(), "spaghetti")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner(), draftID))

	// the worker finishes after the draft is gone; its result must be
	// discarded, not resurrected
	close(gen.release)
	require.Never(t, func() bool {
		_, err := store.Get(ctx, draftID)
		return err == nil
	}, 300*time.Millisecond, 20*time.Millisecond)
}
