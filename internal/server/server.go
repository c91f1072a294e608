package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/config"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/handlers"
	"github.com/emilythestrangee/housecup/backend/internal/middleware"
)

type Server struct {
	cfg      *config.Config
	db       *database.Database
	handler  *handlers.Handler
	verifier *auth.Verifier
	registry *prometheus.Registry
	logger   *logrus.Logger
}

func New(cfg *config.Config, db *database.Database, handler *handlers.Handler, verifier *auth.Verifier, registry *prometheus.Registry, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		cfg:      cfg,
		db:       db,
		handler:  handler,
		verifier: verifier,
		registry: registry,
		logger:   logger,
	}
}

// HTTPServer wraps the router in an http.Server listening on the configured port
func (s *Server) HTTPServer() *http.Server {
	server := &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Infof("🚀 Server listening on port %s", s.cfg.Port)
	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}

	origins := s.cfg.CORSOrigins
	allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  allowAll,
		AllowOrigins:     allowedOrigins(allowAll, origins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health(c.Request.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	h := s.handler
	admin := middleware.RequireAdmin()

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(s.verifier))
	{
		// Positions
		api.GET("/positions", h.Election.ListPositions)
		api.GET("/positions/:id", h.Election.GetPosition)
		api.POST("/positions", admin, h.Election.CreatePosition)
		api.PUT("/positions/:id", admin, h.Election.UpdatePosition)

		// Nominations
		api.POST("/positions/:id/nominations", h.Election.SubmitNomination)
		api.GET("/nominations", h.Election.ListApproved)
		api.GET("/nominations/pending", admin, h.Election.ListPending)
		api.GET("/nominations/:id", h.Election.GetNomination)
		api.POST("/nominations/:id/moderate", admin, h.Election.ModerateNomination)

		// Votes and results
		api.POST("/positions/:id/votes", h.Election.CastVote)
		api.DELETE("/positions/:id/votes", admin, h.Election.ResetResults)
		api.GET("/votes/me", h.Election.MyVotes)
		api.GET("/nominations/:id/count", h.Election.Count)
		api.GET("/positions/:id/tally", h.Election.Tally)
		api.POST("/positions/:id/winner", admin, h.Election.DeclareWinner)

		// Attendance
		api.POST("/registrations/:id/attendance", admin, h.Attendance.MarkAttended)
		api.POST("/attendance/scan", admin, h.Attendance.Scan)
		api.GET("/registrations/:id/qr", h.Attendance.Code)
		api.GET("/events/:id/attendance", admin, h.Attendance.Stats)

		// Realtime
		api.GET("/events", h.Events.Stream)
	}

	return r
}

func allowedOrigins(allowAll bool, origins []string) []string {
	if allowAll {
		return nil
	}
	return origins
}
