package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/middleware"
	"dular-server/models"
	"dular-server/utils"
)

type authResponse struct {
	Token     string             `json:"token"`
	ExpiresIn int                `json:"expires_in"`
	User      models.UserSummary `json:"user"`
}

// issueSession signs a token for u and sets the session cookie.
func (h *handlers) issueSession(c *gin.Context, u models.User, status int) {
	token, err := utils.GenerateToken(h.cfg.JWT, u.ID, string(u.Role))
	if err != nil {
		respondError(c, h.log, apperr.Internal(err))
		return
	}
	maxAge := h.cfg.JWT.ExpiryHours * 3600
	secure := h.cfg.Server.Env == "production"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, token, maxAge, "/", "", secure, true)
	respond(c, status, authResponse{Token: token, ExpiresIn: maxAge, User: u.Summary()})
}

func (h *handlers) register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	phone := utils.FormatPhoneNumber(req.PhoneNumber)
	if !utils.ValidatePhoneNumber(phone) {
		respondError(c, h.log, apperr.BadRequest("Phone number must be a Brazilian number with area code"))
		return
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}

	var existing models.User
	err := h.db.WithContext(c.Request.Context()).Where("phone_number = ?", phone).First(&existing).Error
	if err == nil {
		respondError(c, h.log, apperr.BadRequest("A user with this phone number already exists"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.log, apperr.Internal(err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.log, apperr.Internal(err))
		return
	}
	user := models.User{
		FullName:     strings.TrimSpace(req.FullName),
		PhoneNumber:  phone,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		h.log.DatabaseError("auth.register", err)
		respondError(c, h.log, apperr.Internal(err))
		return
	}
	h.issueSession(c, user, http.StatusCreated)
}

func (h *handlers) login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("phone_number = ?", utils.FormatPhoneNumber(req.PhoneNumber)).
		First(&user).Error
	if err != nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(c, h.log, apperr.Unauthorized("Invalid phone number or password"))
		return
	}
	if !user.IsActive() {
		respondError(c, h.log, apperr.Forbidden("User account is blocked"))
		return
	}
	h.issueSession(c, user, http.StatusOK)
}

func (h *handlers) me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	respond(c, http.StatusOK, user)
}
