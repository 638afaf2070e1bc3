package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamload/internal/model"
	"teamload/internal/repository"
)

func (s *Server) handleMe(c *gin.Context) {
	p := principalOf(c)
	resp := gin.H{"principal": p}
	member, err := s.svc.Members.Get(c.Request.Context(), p.Email)
	switch {
	case err == nil:
		resp["member"] = member
	case !errors.Is(err, repository.ErrNotFound):
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListMembers(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Members.List(c.Request.Context()))
}

type registerRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handleRegisterMember(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	member, created, err := s.svc.Members.Register(c.Request.Context(), req.Email, req.Name, req.AvatarURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, member)
}

type updateMemberRequest struct {
	Email string `json:"email"`
	model.MemberPatch
}

// handleUpdateMember edits a profile; without an email the caller's own.
func (s *Server) handleUpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Email == "" {
		req.Email = principalOf(c).Email
	}
	if err := s.svc.Members.Update(c.Request.Context(), req.Email, req.MemberPatch); err != nil {
		s.writeError(c, err)
		return
	}
	success(c)
}

func (s *Server) handleListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Categories.List(c.Request.Context()))
}
