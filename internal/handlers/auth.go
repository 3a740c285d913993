package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

const invalidLoginMessage = "Correo o contraseña incorrectos"

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func (h HandlerSet) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "email and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User:      newUserResponse(result.Session.User),
	})
}

func (h HandlerSet) APILogout(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if err := h.authService.Logout(c.Request.Context(), session.ID); err != nil {
		h.respondError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) APIMe(c *gin.Context) {
	session := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"user":       newUserResponse(session.User),
		"expires_at": session.ExpiresAt,
	})
}

func (h HandlerSet) LoginForm(c *gin.Context) {
	if middleware.CurrentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	h.render(c, http.StatusOK, "login.html", pageData{Title: "Acceso"})
}

func (h HandlerSet) LoginSubmit(c *gin.Context) {
	email := c.PostForm("email")
	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     email,
		Password:  c.PostForm("password"),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		status := http.StatusUnauthorized
		msg := invalidLoginMessage
		if !service.IsAuth(err) {
			_ = c.Error(err)
			status = http.StatusInternalServerError
			msg = "No se pudo iniciar sesión. Inténtalo de nuevo más tarde."
		}
		h.render(c, status, "login.html", pageData{
			Title: "Acceso",
			Error: msg,
			Form:  map[string]string{"email": models.NormalizeEmail(email)},
		})
		return
	}

	h.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h HandlerSet) LogoutPage(c *gin.Context) {
	if session := middleware.CurrentSession(c); session != nil {
		if err := h.authService.Logout(c.Request.Context(), session.ID); err != nil {
			h.log.Error().Err(err).Str("session_id", session.ID).Msg("logout failed")
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h HandlerSet) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, token, maxAge, "/", "", h.cfg.Security.CookieSecure, true)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, "", -1, "/", "", h.cfg.Security.CookieSecure, true)
}
