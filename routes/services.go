package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dular-server/models"
	"dular-server/services"
)

func optional[T ~string](v string) *T {
	if v == "" {
		return nil
	}
	t := T(v)
	return &t
}

// queryAlias returns the first non-empty query parameter among names.
func queryAlias(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := c.Query(n); v != "" {
			return v
		}
	}
	return ""
}

func (h *handlers) search(c *gin.Context) {
	q := services.SearchQuery{
		City:         c.Query("city"),
		State:        c.Query("state"),
		Neighborhood: c.Query("neighborhood"),
		Type:         optional[models.ServiceType](queryAlias(c, "type", "service_type")),
		Category:     optional[models.ServiceCategory](c.Query("category")),
	}
	results, err := h.lifecycle.Eligibility().Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, results)
}

func (h *handlers) createService(c *gin.Context) {
	var req models.CreateServiceRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	svc, err := h.lifecycle.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, svc)
}

type transitionFunc func(ctx context.Context, actor services.Actor, id uint) (*models.Service, error)

// transition adapts a body-less lifecycle action to a handler.
func (h *handlers) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		svc, err := fn(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		respond(c, http.StatusOK, svc)
	}
}

func (h *handlers) evaluate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.EvaluateRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	svc, eval, err := h.lifecycle.Evaluate(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"service": svc, "evaluation": eval})
}

func (h *handlers) cancel(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req models.CancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	svc, err := h.lifecycle.Cancel(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, svc)
}

func (h *handlers) listMine(c *gin.Context) {
	list, err := h.lifecycle.ListMine(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *handlers) getService(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	svc, err := h.lifecycle.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, svc)
}
