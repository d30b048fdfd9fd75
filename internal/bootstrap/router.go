package bootstrap

import (
	nethttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/atelier-digital/atelier-backend/internal/api/http"
	"github.com/atelier-digital/atelier-backend/internal/api/http/middleware"
	"github.com/atelier-digital/atelier-backend/internal/auth"
	"github.com/atelier-digital/atelier-backend/internal/projects"
	"github.com/atelier-digital/atelier-backend/internal/ratelimit"
	"github.com/atelier-digital/atelier-backend/internal/services"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	DB    *pgxpool.Pool
	Redis *redis.Client

	Verifier    auth.Verifier
	Blobs       storage.BlobStore
	Revalidator projects.Revalidator

	RateLimit      ratelimit.Config
	AllowedOrigins []string
	MaxUploadBytes int64
	MaxImages      int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	projectSvc := projects.NewService(projects.NewRepo(dep.DB), dep.Blobs, dep.Revalidator)
	projectHandler := projects.NewHandler(projectSvc, dep.Blobs, dep.MaxUploadBytes, dep.MaxImages)

	serviceMgr := services.NewManager(services.NewRepo(dep.DB), dep.Blobs, dep.Revalidator)
	serviceHandler := services.NewHandler(serviceMgr)

	api := r.Group("/api/v1")

	// public reads share one fixed-window limiter keyed by client
	public := api.Group("")
	public.Use(ratelimit.Middleware(ratelimit.NewRedisStore(dep.Redis), dep.RateLimit))
	projectHandler.Register(public.Group("/projects"))
	serviceHandler.Register(public.Group("/services"))

	admin := api.Group("/admin")
	admin.Use(auth.RequireUser(dep.Verifier), auth.RequireAdmin())
	projectHandler.RegisterAdmin(admin.Group("/projects"))
	serviceHandler.RegisterAdmin(admin.Group("/services"))
	admin.GET("/whoami", func(c *gin.Context) {
		id := auth.CurrentIdentity(c)
		httpapi.OK(c, nethttp.StatusOK, gin.H{
			"uid":   id.UID,
			"email": id.Email,
			"admin": id.Admin,
		})
	})

	return r
}
