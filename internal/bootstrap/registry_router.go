package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/orgboard/portal-backend/internal/api/http"
	"github.com/orgboard/portal-backend/internal/portal/middleware"
	"github.com/orgboard/portal-backend/internal/registry/members"
	"github.com/orgboard/portal-backend/internal/registry/projects"
	"github.com/orgboard/portal-backend/internal/registry/users"
)

type RegistryDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
}

func BuildRegistryRouter(dep RegistryDeps) *gin.Engine {
	r := gin.Default()

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())

	projectRepo := projects.NewRepo(dep.DB)
	memberRepo := members.NewRepo(dep.DB)
	userRepo := users.NewRepo(dep.DB)

	projects.Register(api.Group("/projects"), projectRepo)
	members.Register(api.Group("/members"), memberRepo)
	users.Register(api.Group("/users"), userRepo)

	return r
}
