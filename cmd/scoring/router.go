package main

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/richxcame/loan-risk/pkg/common"
	"github.com/richxcame/loan-risk/pkg/config"
	"github.com/richxcame/loan-risk/pkg/middleware"
	"github.com/richxcame/loan-risk/pkg/ratelimit"
)

// timeoutGrace is how long the response timeout waits past the request
// deadline for the handler to report the cancelled outcome.
const timeoutGrace = 500 * time.Millisecond

// routerDeps are the constructed collaborators the HTTP surface needs
type routerDeps struct {
	cfg          *config.Config
	handler      *scoring.Handler
	limiter      *ratelimit.Limiter
	checks       map[string]common.HealthCheckFunc
	modelVersion string
	sentry       bool
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(scoring.RespondServerError))
	if d.sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger("/healthz", "/readyz", "/metrics"))
	router.Use(middleware.Metrics(d.cfg.Server.ServiceName))
	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	origins := d.cfg.Server.CORSOriginList()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.CorrelationIDHeader, "Retry-After"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics
	router.GET("/healthz", common.HealthCheck(d.cfg.Server.ServiceName, d.cfg.Server.Version))
	router.GET("/readyz", common.HealthCheckWithDeps(d.cfg.Server.ServiceName, d.cfg.Server.Version, d.modelVersion, d.checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The context deadline fires before the response timeout so the service
	// observes cancellation and answers with its own failure. The timeout
	// middleware is the backstop and runs the chain in its own goroutine,
	// which needs its own Recovery.
	budget := time.Duration(d.cfg.Server.RequestTimeout) * time.Second
	predict := []gin.HandlerFunc{
		middleware.RequestDeadline(budget),
		timeout.New(
			timeout.WithTimeout(budget+timeoutGrace),
			timeout.WithResponse(scoring.RespondServerError),
		),
		middleware.Recovery(scoring.RespondServerError),
		middleware.MaxBodySize(d.cfg.Server.MaxBodyBytes),
	}
	if d.limiter != nil {
		predict = append(predict, middleware.RateLimit(d.limiter))
	}
	d.handler.RegisterRoutes(router, predict...)

	return router
}
