package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teamload/internal/service"
	"teamload/internal/week"
)

const maxTrendWeeks = 52

func (s *Server) handleCapacity(c *gin.Context) {
	wk, ok := s.weekParam(c.Query("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	ctx := c.Request.Context()
	members := s.svc.Members.List(ctx)
	tasks := s.svc.Tasks.List(ctx, "")
	c.JSON(http.StatusOK, service.CapacityForecast(members, tasks, wk))
}

func (s *Server) handleSummary(c *gin.Context) {
	wk, ok := s.weekParam(c.Query("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	tasks := s.svc.Tasks.List(c.Request.Context(), ownerParam(c))
	c.JSON(http.StatusOK, service.Summarize(wk, service.InWeek(tasks, wk), service.InWeek(tasks, week.Prev(wk))))
}

func (s *Server) handleTrend(c *gin.Context) {
	wk, ok := s.weekParam(c.Query("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	n := service.TrendWeeks
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxTrendWeeks {
			badRequest(c, "weeks must be between 1 and 52")
			return
		}
		n = parsed
	}
	tasks := s.svc.Tasks.List(c.Request.Context(), ownerParam(c))
	c.JSON(http.StatusOK, service.WeeklyTrend(week.Last(wk, n), tasks))
}

func (s *Server) handleCategoryReport(c *gin.Context) {
	wk, ok := s.weekParam(c.Query("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	ctx := c.Request.Context()
	tasks := service.InWeek(s.svc.Tasks.List(ctx, ownerParam(c)), wk)
	tasks = service.FilterTasks(tasks, "", service.StatusFilter(c.DefaultQuery("status", string(service.StatusAll))))
	c.JSON(http.StatusOK, service.CategoryBreakdown(tasks, s.svc.Categories.List(ctx)))
}

func (s *Server) handleMonthly(c *gin.Context) {
	now := s.svc.Tasks.Now()
	month := now
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, now.Location())
		if err != nil {
			badRequest(c, "month must be YYYY-MM")
			return
		}
		month = parsed
	}
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, service.Monthly(month,
		s.svc.Tasks.List(ctx, ""), s.svc.Members.List(ctx), s.svc.Categories.List(ctx)))
}
