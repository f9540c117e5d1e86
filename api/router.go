package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/Domenick1991/railbooking/internal/authz"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/Domenick1991/railbooking/internal/service/orders"
	"github.com/Domenick1991/railbooking/internal/service/trips"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

type HealthCheck func(ctx context.Context) error

type Deps struct {
	Stations catalog.StationUseCase
	Trains   catalog.TrainUseCase
	Routes   catalog.RouteUseCase
	Crew     catalog.CrewUseCase
	Trips    trips.TripUseCase
	Orders   orders.OrderUseCase
	Images   ImageURLs

	Authenticator *auth.Authenticator
	Authorizer    *authz.Authorizer

	AllowOrigins []string
	MediaDir     string
	MediaURL     string
	Checks       map[string]HealthCheck
}

func NewRouter(deps Deps) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestID(), Logger(), gin.Recovery())

	if len(deps.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  deps.AllowOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader, requestIDHeader},
			ExposeHeaders: []string{"Content-Length", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	// NoMethod handlers skip group middleware; API paths still need a valid token.
	authenticate := auth.Middleware(deps.Authenticator)
	router.NoMethod(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, apiPrefix+"/") {
			authenticate(c)
			if c.IsAborted() {
				return
			}
		}
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "method \"" + c.Request.Method + "\" not allowed"})
	})

	router.GET("/health", healthHandler(deps.Checks))
	if deps.MediaDir != "" && deps.MediaURL != "" {
		router.Static(deps.MediaURL, deps.MediaDir)
	}

	v1 := router.Group(apiPrefix, auth.Middleware(deps.Authenticator), authz.Middleware(deps.Authorizer))
	NewCrewHandler(deps.Crew).Register(v1.Group("/crew"))
	NewStationHandler(deps.Stations, deps.Images).Register(v1.Group("/stations"))
	NewTrainTypeHandler(deps.Trains).Register(v1.Group("/train_types"))
	NewTrainHandler(deps.Trains).Register(v1.Group("/trains"))
	NewRouteHandler(deps.Routes).Register(v1.Group("/routes"))
	NewTripHandler(deps.Trips).Register(v1.Group("/trips"))
	NewOrderHandler(deps.Orders).Register(v1.Group("/orders"))

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results, "time": time.Now().UTC().Format(time.RFC3339)})
	}
}
