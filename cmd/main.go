package main

import (
	"os"

	"github.com/TomMcKenna1/nutrilytics-backend/config"
	"github.com/TomMcKenna1/nutrilytics-backend/routes"
	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

func main() {
	config.LoadEnv()
	config.InitLogger()
	config.InitDB()
	config.InitRedis()

	var store services.DraftStore
	var identityCache services.IdentityCache
	if config.RDB != nil {
		store = services.NewRedisDraftStore(config.RDB)
		identityCache = services.NewRedisIdentityCache(config.RDB)
	} else {
		store = services.NewMemoryDraftStore()
	}

	hub := services.NewRealtimeHub()
	meals := services.NewMealService(config.RDB)
	drafts := services.NewDraftService(store, services.NewGenAIService(), meals, hub)
	auth := services.NewAuthService(services.NewJWTVerifier(), identityCache)

	r := routes.SetupRouter(routes.Deps{
		Auth:   auth,
		Drafts: drafts,
		Meals:  meals,
		Hub:    hub,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
