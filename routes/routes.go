package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dular-server/config"
	"dular-server/logger"
	"dular-server/middleware"
	"dular-server/models"
	"dular-server/services"
	"dular-server/storage"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *logger.Logger
	Store     storage.AttachmentStore
	Throttler middleware.Throttler
	Scheduler services.RecomputeScheduler
	Clock     services.Clock
}

type handlers struct {
	db        *gorm.DB
	cfg       *config.Config
	log       *logger.Logger
	lifecycle *services.LifecycleService
	directory *services.DirectoryService
	incidents *services.IncidentService
	admin     *services.AdminService
}

func newHandlers(d Deps) *handlers {
	lifecycle := services.NewLifecycleService(d.DB, d.Log, d.Config.Market)
	incidents := services.NewIncidentService(d.DB, d.Log, d.Store)
	admin := services.NewAdminService(d.DB, d.Log, lifecycle.Ledger())
	if d.Scheduler != nil {
		lifecycle.WithScheduler(d.Scheduler)
		incidents.WithScheduler(d.Scheduler)
	}
	if d.Clock != nil {
		lifecycle.WithClock(d.Clock)
		admin.WithClock(d.Clock)
	}
	return &handlers{
		db:        d.DB,
		cfg:       d.Config,
		log:       d.Log,
		lifecycle: lifecycle,
		directory: services.NewDirectoryService(d.DB, d.Log),
		incidents: incidents,
		admin:     admin,
	}
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, d Deps) {
	RegisterValidators()
	h := newHandlers(d)
	rl := d.Config.RateLimit

	router.NoRoute(middleware.NotFound())
	router.GET("/health", health(h))

	apiV1 := router.Group("/api/v1")
	apiV1.GET("/health", health(h))
	apiV1.GET("/catalog", h.catalog)
	apiV1.GET("/neighborhoods", h.listNeighborhoods)

	auth := apiV1.Group("/auth")
	{
		auth.POST("/register", middleware.Throttle(d.Throttler, d.Log, "register", rl.CreateLimit, rl.Window, middleware.ByIP), h.register)
		auth.POST("/login", middleware.Throttle(d.Throttler, d.Log, "login", rl.CreateLimit, rl.Window, middleware.ByIP), h.login)
	}

	protected := apiV1.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Config.JWT, d.DB))
	protected.GET("/auth/me", h.me)

	svc := protected.Group("/services")
	{
		client := middleware.RequireRole(models.RoleClient)
		provider := middleware.RequireRole(models.RoleProvider)

		svc.GET("/search", h.search)
		svc.GET("/mine", h.listMine)
		svc.GET("/:id", h.getService)
		svc.POST("", client, middleware.Throttle(d.Throttler, d.Log, "services.create", rl.CreateLimit, rl.Window, middleware.ByUser), h.createService)
		svc.POST("/:id/accept", provider, h.transition(h.lifecycle.Accept))
		svc.POST("/:id/decline", provider, h.transition(h.lifecycle.Decline))
		svc.POST("/:id/start", provider, h.transition(h.lifecycle.Start))
		svc.POST("/:id/complete", provider, h.transition(h.lifecycle.Complete))
		svc.POST("/:id/confirm", client, h.transition(h.lifecycle.Confirm))
		svc.POST("/:id/evaluate", client, h.evaluate)
		svc.POST("/:id/cancel", h.cancel)
	}

	prov := protected.Group("/provider")
	prov.Use(middleware.RequireRole(models.RoleProvider))
	{
		prov.GET("/me", h.providerMe)
		prov.PUT("/prices", h.updatePrices)
		prov.GET("/skills", h.getSkills)
		prov.PUT("/skills", h.updateSkills)
		prov.PUT("/neighborhoods", h.updateNeighborhoods)
		prov.PUT("/availability", h.updateAvailability)
		prov.POST("/verification", h.submitVerification)
	}

	protected.POST("/incidents", middleware.Throttle(d.Throttler, d.Log, "incidents.create", rl.IncidentLimit, rl.Window, middleware.ByUser), h.createIncident)

	safety := protected.Group("/safety")
	{
		safety.POST("/checkin", h.checkin)
		safety.POST("/sos", h.sos)
	}

	admin := protected.Group("/admin")
	admin.Use(
		middleware.RequireRole(models.RoleAdmin),
		middleware.Throttle(d.Throttler, d.Log, "admin", rl.AdminLimit, rl.Window, middleware.ByIP),
	)
	{
		admin.GET("/incidents", h.listIncidents)
		admin.GET("/incidents/:id", h.getIncident)
		admin.POST("/incidents/:id", h.updateIncidentStatus)
		admin.GET("/users", h.listUsers)
		admin.PATCH("/users/:id/status", h.setUserStatus)
		admin.POST("/providers/:id/verification", h.setVerification)
		admin.POST("/services/:id/dispute", h.markDispute)
		admin.GET("/services/:id/events", h.serviceEvents)
		admin.GET("/ops/queue", h.opsQueue)
	}
}
