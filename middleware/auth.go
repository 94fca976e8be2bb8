package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/config"
	"dular-server/models"
	"dular-server/types"
	"dular-server/utils"
)

// Claims represents the JWT claims (using shared types)
type Claims = types.Claims

// Context keys set by AuthMiddleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxUser   = "user"
)

// Abort writes the error envelope and stops the chain.
func Abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus(), err.Body())
}

// tokenFrom reads a bearer token, falling back to the session cookie.
func tokenFrom(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if tok, err := c.Cookie(cookieName); err == nil {
		return tok
	}
	return ""
}

// AuthMiddleware validates JWT tokens and sets user context. The role is
// taken from the verified token and has to match the stored account.
func AuthMiddleware(cfg config.JWTConfig, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFrom(c, cfg.CookieName)
		if tokenString == "" {
			Abort(c, apperr.Unauthorized("Please provide a valid token"))
			return
		}

		claims, err := utils.VerifyToken(cfg, tokenString)
		if err != nil {
			Abort(c, apperr.Unauthorized("Token is invalid or expired"))
			return
		}
		role := models.Role(claims.Role)
		if !role.Valid() {
			Abort(c, apperr.Unauthorized("Token carries an unknown role"))
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			Abort(c, apperr.Unauthorized("User associated with token not found"))
			return
		}
		if user.Role != role {
			Abort(c, apperr.Unauthorized("Token role no longer matches the account"))
			return
		}
		if !user.IsActive() {
			Abort(c, apperr.Forbidden("User account is blocked"))
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxUserID, user.ID)
		c.Set(CtxRole, user.Role)
		c.Next()
	}
}

// RequireRole lets through only the given roles. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		r, ok := role.(models.Role)
		if !ok {
			Abort(c, apperr.Unauthorized("Authentication required"))
			return
		}
		for _, allowed := range roles {
			if r == allowed {
				c.Next()
				return
			}
		}
		Abort(c, apperr.Forbidden("This action is not available for your role"))
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// NotFound is the fallback handler for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		Abort(c, apperr.New(apperr.CodeNotFound, http.StatusText(http.StatusNotFound)))
	}
}
