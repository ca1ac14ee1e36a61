package models

import "time"

// NutritionProfile is the structured output of the meal generator.
type NutritionProfile struct {
	Name       string               `json:"name"`
	Calories   float64              `json:"calories"`
	Protein    float64              `json:"protein"`
	Carbs      float64              `json:"carbs"`
	Fat        float64              `json:"fat"`
	Sodium     float64              `json:"sodium"`
	Sugar      float64              `json:"sugar"`
	Components []NutritionComponent `json:"components"`
}

// NutritionComponent is one part of a generated meal (e.g. "spaghetti",
// "bolognese sauce"). Quantity is grams, sodium milligrams.
type NutritionComponent struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Meal is the permanent record produced by promoting a completed draft.
type Meal struct {
	ID         string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UID        string          `gorm:"type:varchar(128);index;not null" json:"uid"`
	Name       string          `gorm:"not null" json:"name"`
	Calories   float64         `json:"calories"`
	Protein    float64         `json:"protein"`
	Carbs      float64         `json:"carbs"`
	Fat        float64         `json:"fat"`
	Sodium     float64         `json:"sodium"`
	Sugar      float64         `json:"sugar"`
	Components []MealComponent `json:"components"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"-"`
}

type MealComponent struct {
	ID       uint    `gorm:"primaryKey" json:"-"`
	MealID   string  `gorm:"type:varchar(36);index" json:"-"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}
