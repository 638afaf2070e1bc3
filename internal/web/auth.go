package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Principal is the signed-in user as reported by the auth proxy.
type Principal struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// requirePrincipal reads the identity headers and rejects requests without an
// email.
func (s *Server) requirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.GetHeader(s.auth.EmailHeader)))
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		p := Principal{Email: email}
		if s.auth.NameHeader != "" {
			p.Name = strings.TrimSpace(c.GetHeader(s.auth.NameHeader))
		}
		if s.auth.AvatarHeader != "" {
			p.AvatarURL = strings.TrimSpace(c.GetHeader(s.auth.AvatarHeader))
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principalOf(c *gin.Context) Principal {
	p, _ := c.MustGet(principalKey).(Principal)
	return p
}
