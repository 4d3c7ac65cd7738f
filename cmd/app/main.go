package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"wayfare/cmd/fx/account_fx"
	"wayfare/cmd/fx/analysis_fx"
	"wayfare/cmd/fx/controllers_fx"
	"wayfare/cmd/fx/db_fx"
	"wayfare/cmd/fx/finalize_fx"
	"wayfare/cmd/fx/memcache_fx"
	"wayfare/cmd/fx/plan_fx"
	"wayfare/internal/api/controllers"
	"wayfare/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	app := fx.New(
		db_fx.Module,
		memcache_fx.Module,
		account_fx.Module,
		plan_fx.Module,
		analysis_fx.Module,
		finalize_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	planController *controllers.PlanController,
	requestController *controllers.RequestController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, accountController, planController, requestController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	planController *controllers.PlanController,
	requestController *controllers.RequestController) {

	accountsGroup := r.Group("/accounts")
	accountsGroup.POST("/register", accountController.Register)
	accountsGroup.POST("/login", accountController.Login)

	plansGroup := r.Group("/plans")
	plansGroup.Use(middleware.JWTAuthMiddleware())
	plansGroup.POST("/create", planController.CreatePlan)
	plansGroup.GET("", planController.GetPlansByUserId)
	plansGroup.GET("/:planId", planController.GetPlanById)
	plansGroup.POST("/:planId/stops", planController.AddStop)
	plansGroup.POST("/remove-stop", planController.RemoveStop)
	plansGroup.POST("/set-stop-location", planController.SetStopLocation)
	plansGroup.POST("/save-action", planController.SaveAction)
	plansGroup.POST("/delete-action", planController.DeleteAction)
	plansGroup.POST("/:planId/finalize", planController.FinalizePlan)

	requestsGroup := r.Group("/requests")
	requestsGroup.Use(middleware.JWTAuthMiddleware())
	requestsGroup.GET("", requestController.GetRequestsByUserId)
	requestsGroup.GET("/open", requestController.GetOpenRequests)
}
