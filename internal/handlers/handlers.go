package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

const loginPath = "/login"

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	db             database.DB
	cache          *redis.Client
	notifier       notify.Notifier
	loginLimiter   middleware.Limiter
	authService    *service.AuthService
	bookingService *service.BookingService
	catalogService *service.CatalogService
}

// NewHandlerSet wires repositories and services over db. cache may be nil when redis is not configured.
func NewHandlerSet(
	log zerolog.Logger,
	db database.DB,
	cache *redis.Client,
	notifier notify.Notifier,
	loginLimiter middleware.Limiter,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		db:             db,
		cache:          cache,
		notifier:       notifier,
		loginLimiter:   loginLimiter,
		authService:    service.NewAuthService(userRepo, sessionRepo, cfg, log),
		bookingService: service.NewBookingService(db, serviceRepo, appointmentRepo, notifier, log),
		catalogService: service.NewCatalogService(db, serviceRepo, appointmentRepo, log),
	}
}

func (h HandlerSet) AuthService() *service.AuthService {
	return h.authService
}

func (h HandlerSet) BookingService() *service.BookingService {
	return h.bookingService
}

// Register mounts the JSON API under router, normally the /api group.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(h.authService, h.cfg.Security.CookieName))

	// Login replaces whatever session the caller holds, so it is outside the CSRF check.
	v1.POST("/auth/login", middleware.RateLimit(h.loginLimiter, h.log), h.APILogin)

	api := v1.Group("")
	api.Use(middleware.CSRF(h.cfg.Security.SecretKey))
	{
		api.GET("/services", h.APIListServices)
		api.GET("/availability", h.APIAvailability)
		api.POST("/appointments", h.APICreateAppointment)

		auth := api.Group("/auth")
		auth.Use(middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleStaff))
		auth.POST("/logout", h.APILogout)
		auth.GET("/me", h.APIMe)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleStaff))
	{
		admin.GET("/appointments", h.APIListAppointments)
		admin.GET("/appointments/:id", h.APIGetAppointment)
		admin.PATCH("/appointments/:id/status", h.APISetAppointmentStatus)

		admin.GET("/services", h.APIListAllServices)
		admin.POST("/services", h.APICreateService)
		admin.PUT("/services/:id", h.APIUpdateService)
		admin.DELETE("/services/:id", h.APIDeleteService)
	}
}

// RegisterPages mounts the server-rendered site at the root of router.
func (h HandlerSet) RegisterPages(router *gin.RouterGroup) {
	router.Use(middleware.Auth(h.authService, h.cfg.Security.CookieName))

	router.GET(loginPath, h.LoginForm)
	router.POST(loginPath, middleware.RateLimit(h.loginLimiter, h.log), h.LoginSubmit)

	site := router.Group("")
	site.Use(middleware.CSRF(h.cfg.Security.SecretKey))

	site.GET("/", h.Index)
	site.GET("/book", h.BookForm)
	site.POST("/book", h.Book)
	site.GET("/logout", h.LogoutPage)
	site.POST("/logout", h.LogoutPage)

	admin := site.Group("")
	admin.Use(middleware.RequireLogin(loginPath))
	{
		admin.GET("/admin", h.Dashboard)
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/admin/appointments", h.AdminAppointments)
		admin.POST("/admin/appointments/:id/status", h.AdminSetStatus)
		admin.GET("/admin/services", h.AdminServices)
		admin.GET("/admin/services/new", h.AdminNewService)
		admin.POST("/admin/services/new", h.AdminCreateService)
		admin.GET("/admin/services/:id/edit", h.AdminEditService)
		admin.POST("/admin/services/:id/edit", h.AdminUpdateService)
		admin.POST("/admin/services/:id/delete", h.AdminDeleteService)
	}
}
