package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/orgboard/portal-backend/internal/api/http"
	"github.com/orgboard/portal-backend/internal/portal/coordinator"
	portalhttp "github.com/orgboard/portal-backend/internal/portal/http"
	"github.com/orgboard/portal-backend/internal/portal/middleware"
	"github.com/orgboard/portal-backend/internal/portal/store"
)

type PortalDeps struct {
	ServiceName string
	Version     string
	BoardKey    string
	Coordinator *coordinator.Coordinator
	Store       *store.Store
}

func BuildPortalRouter(dep PortalDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, nil)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1/portal")
	api.Use(middleware.RequestIDMiddleware())
	api.Use(middleware.BoardKeyMiddleware(dep.BoardKey))

	portalhttp.Register(api, dep.Coordinator, dep.Store)

	return r
}
