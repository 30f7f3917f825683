package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/aethersegment/backend/internal/app"
	"github.com/aethersegment/backend/internal/http/handlers"
	"github.com/aethersegment/backend/internal/http/middleware"

	_ "github.com/aethersegment/backend/docs"
)

func Router(a *app.App, logger zerolog.Logger) *gin.Engine {
	cfg := a.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Segments:  a.Segments,
		Overview:  a.Overview,
		Ping:      a.Ping,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.POST("/campaigns/analyze", h.Analyze)
		api.POST("/segments/preview-filters", h.PreviewFilters)
		api.GET("/segments/:id", h.GetSegment)
		api.GET("/segments/:id/customers", h.SegmentCustomers)
		api.GET("/overview/stats", h.OverviewStats)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/segments", h.CreateSegment)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
