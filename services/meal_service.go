package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/TomMcKenna1/nutrilytics-backend/config"
	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

const (
	latestMealsCachePrefix = "latest_meals:"
	latestMealsCacheTTL    = 5 * time.Minute

	maxListLimit = 20
)

// MealService is the gateway to the permanent meal store. Meals are immutable
// from the draft lifecycle's point of view: once written they belong to the
// database, and only plain owner-scoped CRUD touches them afterwards.
type MealService struct {
	rdb *redis.Client // optional list-response cache; nil disables it
}

func NewMealService(rdb *redis.Client) *MealService {
	return &MealService{rdb: rdb}
}

type MealList struct {
	Meals []models.Meal `json:"meals"`
	Next  string        `json:"next,omitempty"`
}

func componentsFromProfile(mealID string, p *models.NutritionProfile) []models.MealComponent {
	components := make([]models.MealComponent, 0, len(p.Components))
	for _, c := range p.Components {
		components = append(components, models.MealComponent{
			MealID:   mealID,
			Name:     c.Name,
			Type:     c.Type,
			Quantity: c.Quantity,
			Calories: c.Calories,
			Protein:  c.Protein,
			Carbs:    c.Carbs,
			Fat:      c.Fat,
		})
	}
	return components
}

// SaveFromProfile writes a promoted draft result as a new permanent meal and
// returns it with its assigned id and timestamp.
func (s *MealService) SaveFromProfile(ctx context.Context, uid string, p *models.NutritionProfile) (*models.Meal, error) {
	meal := &models.Meal{
		ID:       uuid.NewString(),
		UID:      uid,
		Name:     p.Name,
		Calories: p.Calories,
		Protein:  p.Protein,
		Carbs:    p.Carbs,
		Fat:      p.Fat,
		Sodium:   p.Sodium,
		Sugar:    p.Sugar,
	}
	meal.Components = componentsFromProfile(meal.ID, p)

	if err := config.DB.WithContext(ctx).Create(meal).Error; err != nil {
		return nil, fmt.Errorf("create meal: %w", err)
	}
	s.invalidateLatest(ctx, uid)
	return meal, nil
}

func (s *MealService) GetByID(ctx context.Context, uid, mealID string) (*models.Meal, error) {
	var meal models.Meal
	err := config.DB.WithContext(ctx).
		Preload("Components").
		First(&meal, "id = ?", mealID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if meal.UID != uid {
		return nil, ErrForbidden
	}
	return &meal, nil
}

// ListLatest returns the owner's meals newest first, paginated by the id of
// the last meal on the previous page. Pages are cached briefly in Redis and
// invalidated whenever the owner's meals change.
func (s *MealService) ListLatest(ctx context.Context, uid string, limit int, next string) (*MealList, error) {
	if limit < 1 || limit > maxListLimit {
		return nil, ErrInvalidLimit
	}

	cursor := next
	if cursor == "" {
		cursor = "first"
	}
	cacheKey := fmt.Sprintf("%s%s:%d:%s", latestMealsCachePrefix, uid, limit, cursor)

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var list MealList
			if json.Unmarshal(raw, &list) == nil {
				return &list, nil
			}
		} else if err != redis.Nil {
			config.Log.Warnf("latest meals cache read failed: %v", err)
		}
	}

	q := config.DB.WithContext(ctx).
		Preload("Components").
		Where("uid = ?", uid).
		Order("created_at DESC, id DESC")

	if next != "" {
		var cur models.Meal
		err := config.DB.WithContext(ctx).First(&cur, "id = ? AND uid = ?", next, uid).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var meals []models.Meal
	if err := q.Limit(limit).Find(&meals).Error; err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []models.Meal{}
	}

	list := &MealList{Meals: meals}
	if len(meals) == limit {
		list.Next = meals[len(meals)-1].ID
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(list); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, raw, latestMealsCacheTTL).Err(); err != nil {
				config.Log.Warnf("latest meals cache write failed: %v", err)
			}
		}
	}
	return list, nil
}

// Update replaces a meal's nutrition data in place, keeping its id and
// creation time.
func (s *MealService) Update(ctx context.Context, uid, mealID string, p *models.NutritionProfile) (*models.Meal, error) {
	meal, err := s.GetByID(ctx, uid, mealID)
	if err != nil {
		return nil, err
	}

	meal.Name = p.Name
	meal.Calories = p.Calories
	meal.Protein = p.Protein
	meal.Carbs = p.Carbs
	meal.Fat = p.Fat
	meal.Sodium = p.Sodium
	meal.Sugar = p.Sugar
	meal.Components = nil
	if err := config.DB.WithContext(ctx).Save(meal).Error; err != nil {
		return nil, err
	}

	// Replace the component rows wholesale; diffing them is not worth it.
	if err := config.DB.WithContext(ctx).
		Where("meal_id = ?", meal.ID).
		Delete(&models.MealComponent{}).Error; err != nil {
		return nil, err
	}
	components := componentsFromProfile(meal.ID, p)
	if len(components) > 0 {
		if err := config.DB.WithContext(ctx).Create(&components).Error; err != nil {
			return nil, err
		}
	}

	var updated models.Meal
	if err := config.DB.WithContext(ctx).
		Preload("Components").
		First(&updated, "id = ?", meal.ID).Error; err != nil {
		return nil, err
	}
	s.invalidateLatest(ctx, uid)
	return &updated, nil
}

func (s *MealService) Delete(ctx context.Context, uid, mealID string) error {
	meal, err := s.GetByID(ctx, uid, mealID)
	if err != nil {
		return err
	}

	if err := config.DB.WithContext(ctx).
		Where("meal_id = ?", meal.ID).
		Delete(&models.MealComponent{}).Error; err != nil {
		return err
	}
	if err := config.DB.WithContext(ctx).
		Delete(&models.Meal{}, "id = ?", meal.ID).Error; err != nil {
		return err
	}
	s.invalidateLatest(ctx, uid)
	return nil
}

func (s *MealService) invalidateLatest(ctx context.Context, uid string) {
	if s.rdb == nil {
		return
	}
	pattern := latestMealsCachePrefix + uid + ":*"
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		config.Log.Warnf("latest meals cache scan failed for user %s: %v", uid, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		config.Log.Warnf("latest meals cache invalidation failed for user %s: %v", uid, err)
	}
}
