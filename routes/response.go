package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/middleware"
	"dular-server/models"
	"dular-server/services"
)

// fieldError is one entry of the details of a validation failure.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

// respondError writes the error envelope. Unexpected errors are logged and
// reported without their cause.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeInternal {
		log.Error("request_failed",
			"path", c.FullPath(),
			"request_id", c.GetString("request_id"),
			"error", err.Error())
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), e.Body())
}

// bindJSON decodes the body into dst, answering bad_request on failure.
func bindJSON(c *gin.Context, log *logger.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, log, bindError(err))
		return false
	}
	return true
}

func bindError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Namespace(), Rule: fe.Tag()})
		}
		return apperr.BadRequest("Invalid request data").WithDetails(details)
	}
	return apperr.BadRequest("Malformed request body")
}

func actorFrom(c *gin.Context) services.Actor {
	role, _ := c.Get(middleware.CtxRole)
	r, _ := role.(models.Role)
	return services.Actor{ID: c.GetUint(middleware.CtxUserID), Role: r}
}

func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest(fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

func health(h *handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
