package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dular-server/models"
)

func (h *handlers) catalog(c *gin.Context) {
	respond(c, http.StatusOK, models.Catalog)
}

func (h *handlers) listNeighborhoods(c *gin.Context) {
	list, err := h.directory.ListNeighborhoods(c.Request.Context(), c.Query("city"), c.Query("state"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, list)
}
