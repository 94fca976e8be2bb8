package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dular-server/models"
)

func (h *handlers) providerMe(c *gin.Context) {
	profile, err := h.directory.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

func (h *handlers) updatePrices(c *gin.Context) {
	var req models.UpdatePricesRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	prices, err := h.directory.UpdatePrices(c.Request.Context(), actorFrom(c), req.Prices)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, prices)
}

func (h *handlers) getSkills(c *gin.Context) {
	skills, err := h.directory.Skills(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, skills)
}

func (h *handlers) updateSkills(c *gin.Context) {
	var req models.UpdateSkillsRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	skills, err := h.directory.ReplaceSkills(c.Request.Context(), actorFrom(c), req.Skills)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, skills)
}

func (h *handlers) updateNeighborhoods(c *gin.Context) {
	var req models.UpdateNeighborhoodsRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	list, err := h.directory.ReplaceNeighborhoods(c.Request.Context(), actorFrom(c), req.Neighborhoods)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *handlers) updateAvailability(c *gin.Context) {
	var req models.UpdateAvailabilityRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	slots, err := h.directory.ReplaceAvailability(c.Request.Context(), actorFrom(c), req.Slots)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, slots)
}

func (h *handlers) submitVerification(c *gin.Context) {
	var req models.SubmitVerificationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	profile, err := h.directory.SubmitVerification(c.Request.Context(), actorFrom(c), req.Bio)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, profile)
}
