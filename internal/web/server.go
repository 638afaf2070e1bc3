package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamload/internal/config"
	"teamload/internal/service"
)

// Services are the domain services the HTTP API exposes.
type Services struct {
	Tasks      *service.TaskService
	Members    *service.MemberService
	Categories *service.CategoryService
}

// Server is the JSON API.
type Server struct {
	svc    Services
	auth   config.AuthConfig
	log    *zap.Logger
	router *gin.Engine
}

// NewServer creates the API server. Every route requires an authenticated
// principal.
func NewServer(svc Services, auth config.AuthConfig, log *zap.Logger) *Server {
	router := gin.New()

	s := &Server{
		svc:    svc,
		auth:   auth,
		log:    log.Named("http"),
		router: router,
	}
	router.Use(s.requestLogger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/", s.requirePrincipal())
	{
		api.GET("/me", s.handleMe)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PATCH("/tasks", s.handlePatchTask)
		api.DELETE("/tasks", s.handleDeleteTask)
		api.POST("/tasks/reorder", s.handleReorder)
		api.POST("/tasks/:id/copy-next-week", s.handleCopyNextWeek)

		api.GET("/weeks/:week/tasks", s.handleWeekTasks)
		api.POST("/weeks/:week/clear-completed", s.handleClearCompleted)
		api.POST("/weeks/:week/copy-pending", s.handleCopyPending)

		api.GET("/members", s.handleListMembers)
		api.POST("/members", s.handleRegisterMember)
		api.PUT("/members", s.handleUpdateMember)

		api.GET("/categories", s.handleListCategories)

		reports := api.Group("/reports")
		{
			reports.GET("/capacity", s.handleCapacity)
			reports.GET("/summary", s.handleSummary)
			reports.GET("/trend", s.handleTrend)
			reports.GET("/categories", s.handleCategoryReport)
			reports.GET("/monthly", s.handleMonthly)
		}
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then drains open requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
