package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamload/internal/model"
	"teamload/internal/service"
	"teamload/internal/week"
)

// ownerParam reads the owner filter; "email" is accepted for older clients.
func ownerParam(c *gin.Context) string {
	owner := c.Query("owner")
	if owner == "" {
		owner = c.Query("email")
	}
	return strings.ToLower(strings.TrimSpace(owner))
}

// weekParam resolves a week from raw; "" and "current" mean the current week.
func (s *Server) weekParam(raw string) (week.Key, bool) {
	if raw == "" || raw == "current" {
		return s.svc.Tasks.CurrentWeek(), true
	}
	wk, err := week.Parse(raw)
	if err != nil {
		return "", false
	}
	return wk, true
}

func (s *Server) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Tasks.List(c.Request.Context(), ownerParam(c)))
}

func (s *Server) handleWeekTasks(c *gin.Context) {
	wk, ok := s.weekParam(c.Param("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	tasks, err := s.svc.Tasks.LoadWeek(c.Request.Context(), wk, ownerParam(c))
	if err != nil {
		s.log.Warn("recurrence incomplete", zap.String("week", wk.String()), zap.Error(err))
	}
	c.JSON(http.StatusOK, service.ByOrder(tasks))
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if input.MemberID == "" {
		input.MemberID = principalOf(c).Email
	}
	task, err := s.svc.Tasks.Create(c.Request.Context(), input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

type patchTaskRequest struct {
	ID string `json:"id"`
	model.TaskPatch
}

func (s *Server) handlePatchTask(c *gin.Context) {
	var req patchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.svc.Tasks.Edit(c.Request.Context(), req.ID, req.TaskPatch); err != nil {
		s.writeError(c, err)
		return
	}
	success(c)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.svc.Tasks.Delete(c.Request.Context(), c.Query("id")); err != nil {
		s.writeError(c, err)
		return
	}
	success(c)
}

type reorderRequest struct {
	Updates []service.ReorderItem `json:"updates"`
}

func (s *Server) handleReorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	for _, u := range req.Updates {
		if u.ID == "" {
			badRequest(c, "every update needs an id")
			return
		}
	}
	if err := s.svc.Tasks.Reorder(c.Request.Context(), req.Updates); err != nil {
		s.writeError(c, err)
		return
	}
	success(c)
}

func (s *Server) handleCopyNextWeek(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := s.svc.Tasks.Get(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	clone, err := s.svc.Tasks.CopyToNextWeek(ctx, task)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, clone)
}

func (s *Server) handleClearCompleted(c *gin.Context) {
	wk, ok := s.weekParam(c.Param("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	ctx := c.Request.Context()
	tasks := service.InWeek(s.svc.Tasks.List(ctx, ownerParam(c)), wk)
	removed, err := s.svc.Tasks.ClearCompleted(ctx, tasks)
	if removed == nil {
		removed = []string{}
	}
	if err != nil {
		s.log.Error("clear completed", zap.String("week", wk.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "removed": removed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func (s *Server) handleCopyPending(c *gin.Context) {
	wk, ok := s.weekParam(c.Param("week"))
	if !ok {
		badRequest(c, "week must be YYYY-MM-DD")
		return
	}
	ctx := c.Request.Context()
	tasks := service.InWeek(s.svc.Tasks.List(ctx, ownerParam(c)), wk)
	copied, err := s.svc.Tasks.CopyPendingToNextWeek(ctx, tasks)
	if copied == nil {
		copied = []model.Task{}
	}
	if err != nil {
		s.log.Error("copy pending", zap.String("week", wk.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "copied": copied})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "copied": copied})
}
