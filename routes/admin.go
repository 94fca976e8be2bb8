package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dular-server/models"
)

func (h *handlers) listIncidents(c *gin.Context) {
	list, err := h.incidents.List(c.Request.Context(), models.IncidentStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *handlers) getIncident(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	report, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (h *handlers) updateIncidentStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.UpdateIncidentStatusRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	report, err := h.incidents.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (h *handlers) listUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), models.Role(c.Query("role")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, users)
}

func (h *handlers) setUserStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.SetUserStatusRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	user, err := h.admin.SetUserStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *handlers) setVerification(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.VerificationDecisionRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	profile, err := h.admin.SetVerification(c.Request.Context(), id, *req.Approve, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

func (h *handlers) markDispute(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.DisputeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	svc, err := h.admin.MarkDispute(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, svc)
}

func (h *handlers) serviceEvents(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	events, err := h.admin.ServiceEvents(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, events)
}

func (h *handlers) opsQueue(c *gin.Context) {
	q, err := h.admin.OpsQueue(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, q)
}
