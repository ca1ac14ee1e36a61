package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/TomMcKenna1/nutrilytics-backend/controllers"
	"github.com/TomMcKenna1/nutrilytics-backend/middlewares"
	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

type Deps struct {
	Auth   *services.AuthService
	Drafts *services.DraftService
	Meals  *services.MealService
	Hub    *services.RealtimeHub
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/", controllers.Home)

	authRequired := middlewares.AuthMiddleware(deps.Auth)

	auth := r.Group("/auth")
	auth.Use(authRequired)
	{
		auth.GET("/me", controllers.Me)
	}

	dc := controllers.NewDraftController(deps.Drafts)
	drafts := r.Group("/meal_drafts")
	drafts.Use(authRequired)
	{
		drafts.POST("/", dc.CreateDraft)
		drafts.GET("/:id", dc.GetDraft)
		drafts.DELETE("/:id", dc.DeleteDraft)
	}

	mc := controllers.NewMealController(deps.Meals, deps.Drafts)
	meals := r.Group("/meals")
	meals.Use(authRequired)
	{
		meals.POST("/", mc.SaveMeal)
		meals.GET("/", mc.ListMeals)
		meals.GET("/:id", mc.GetMeal)
		meals.PUT("/:id", mc.UpdateMeal)
		meals.DELETE("/:id", mc.DeleteMeal)
	}

	rc := controllers.NewRealtimeController(deps.Hub)
	realtime := r.Group("/realtime")
	realtime.Use(authRequired)
	{
		realtime.GET("/drafts", rc.DraftsWS)
	}

	return r
}
