package handler

import (
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
}

func NewSubscriptionHandler(svc service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc}
}

func (h *SubscriptionHandler) Register(r gin.IRouter) {
	r.PUT("/subscriptions", h.Subscribe)
	r.GET("/subscriptions", h.List)
	r.DELETE("/subscriptions/:id", h.Unsubscribe)
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req dto.UpsertSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.Subscribe(c.Request.Context(), currentUser(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	out, err := h.service.ListSubscriptions(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Unsubscribe(c.Request.Context(), currentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
