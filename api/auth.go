package api

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Flashes": takeFlashes(c),
	})
}

// LoginPost matches the submitted password against the shared secret for the
// chosen role. No hashing, no lockout; the passwords gate a two-person shop.
func (h *Handler) LoginPost(c *gin.Context) {
	role := c.DefaultPostForm("role", "agent")
	password := c.PostForm("password")
	name := formValue(c, "name")

	var expected string
	switch role {
	case "admin":
		expected = h.Cfg.AdminPassword
		if name == "" {
			name = "Admin"
		}
	case "agent":
		expected = h.Cfg.AgentPassword
		if name == "" {
			name = "Agent"
		}
	default:
		addFlash(c, "error", "Rôle inconnu")
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	if expected == "" || password != expected {
		addFlash(c, "error", "Login incorrect")
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	s := sessions.Default(c)
	s.Set(sessionRoleKey, role)
	s.Set(sessionNameKey, name)
	if err := s.Save(); err != nil {
		zap.L().Error("Failed to save session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) Logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	if err := s.Save(); err != nil {
		zap.L().Warn("Failed to clear session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/auth/login")
}
