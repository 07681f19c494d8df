package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/config"
	"github.com/booali9/obe-comiler-backend/internal/http/handlers"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/booali9/obe-comiler-backend/internal/observability"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type Deps struct {
	Cfg  config.Config
	Log  *slog.Logger
	Pool *pgxpool.Pool
	JWT  *auth.Manager

	Users      middlewares.UserGetter
	Auth       handlers.AuthAPI
	Forms      handlers.FormsAPI
	AdminUsers handlers.AdminUsersAPI

	Prom     *observability.Prom
	Registry *prometheus.Registry
	// nil disables rate limiting (tests, local runs without Redis)
	Redis redis.UniversalClient
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(otelgin.Middleware("obe-forms-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if d.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// rate limiting; pass-through when Redis is absent

	limit := func(name string, limit int, window time.Duration, keyFn func(*gin.Context) string) gin.HandlerFunc {
		if d.Redis == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middlewares.NewRateLimiter(d.Redis, limit, window).RateLimiterMiddleware(name, keyFn)
	}

	authMW := middlewares.NewAuthMiddleware(d.JWT, d.Users)

	authHandler := handlers.NewAuthHandler(d.Auth, d.JWT)
	formsHandler := handlers.NewFormsHandler(d.Forms)
	adminUsersHandler := handlers.NewAdminUsersHandler(d.AdminUsers, d.Auth)

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	api.Use(middlewares.RequireJSON())

	// credential lifecycle; the reset flow is public on purpose, a teacher
	// locked out of their account cannot present a session token
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", limit("signup", 10, time.Minute, middlewares.KeyByIP), authHandler.SignUp)
		authGroup.POST("/login", limit("login", 10, time.Minute, middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/forgot-password", limit("forgot", 5, time.Minute, middlewares.KeyByIP), authHandler.ForgotPassword)
		authGroup.POST("/verify-otp", limit("verify_otp", 10, time.Minute, middlewares.KeyByIP), authHandler.VerifyOTP)

		authGroup.PATCH("/reset-password", authMW.RequireResetToken(), authHandler.ResetPassword)
		authGroup.PATCH("/change-password", authMW.RequireAuth(), authHandler.ChangePassword)
	}

	forms := api.Group("/forms")
	forms.Use(authMW.RequireAuth())
	forms.Use(limit("forms", 60, time.Minute, middlewares.KeyByUserOrIP))
	{
		forms.POST("", formsHandler.Submit)
		forms.GET("", formsHandler.ListMine)
		forms.POST("/attachments/upload-url", formsHandler.UploadURL)
		forms.GET("/:id", formsHandler.Get)
		forms.DELETE("/:id", formsHandler.Delete)
		forms.GET("/:id/attachments/:kind", formsHandler.Attachment)
	}

	admin := api.Group("/admin")
	admin.Use(authMW.RequireAuth())
	admin.Use(authMW.RequireRole("admin"))
	{
		admin.POST("/users", adminUsersHandler.Create)
		admin.GET("/users", adminUsersHandler.List)
		admin.GET("/users/:id", adminUsersHandler.Get)
		admin.PATCH("/users/:id", adminUsersHandler.Update)
		admin.DELETE("/users/:id", adminUsersHandler.Deactivate)
		admin.POST("/users/:id/reactivate", adminUsersHandler.Reactivate)

		admin.GET("/forms", formsHandler.ListAll)
		admin.POST("/forms/export", formsHandler.Export)
	}

	return r
}
