package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TomMcKenna1/nutrilytics-backend/middlewares"
	"github.com/TomMcKenna1/nutrilytics-backend/models"
	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

type MealController struct {
	meals  *services.MealService
	drafts *services.DraftService
}

func NewMealController(meals *services.MealService, drafts *services.DraftService) *MealController {
	return &MealController{meals: meals, drafts: drafts}
}

type saveMealInput struct {
	DraftID string `json:"draft_id" binding:"required"`
}

// SaveMeal promotes a completed draft into a permanent meal. 409 if the draft
// has not finished generating, 404 once it has been consumed.
func (mc *MealController) SaveMeal(c *gin.Context) {
	var input saveMealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middlewares.CurrentIdentity(c)
	meal, err := mc.drafts.Promote(c.Request.Context(), identity, input.DraftID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (mc *MealController) GetMeal(c *gin.Context) {
	identity := middlewares.CurrentIdentity(c)
	meal, err := mc.meals.GetByID(c.Request.Context(), identity.UID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// ListMeals serves the paginated newest-first meal listing. Only
// ?sort=latest is supported.
func (mc *MealController) ListMeals(c *gin.Context) {
	if c.Query("sort") != "latest" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported query, use ?sort=latest"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be an integer"})
		return
	}

	identity := middlewares.CurrentIdentity(c)
	list, err := mc.meals.ListLatest(c.Request.Context(), identity.UID, limit, c.Query("next"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (mc *MealController) UpdateMeal(c *gin.Context) {
	var input models.NutritionProfile
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middlewares.CurrentIdentity(c)
	meal, err := mc.meals.Update(c.Request.Context(), identity.UID, c.Param("id"), &input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (mc *MealController) DeleteMeal(c *gin.Context) {
	identity := middlewares.CurrentIdentity(c)
	if err := mc.meals.Delete(c.Request.Context(), identity.UID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
