package handler

import (
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/service"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	service service.EngagementService
}

func NewEngagementHandler(svc service.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: svc}
}

func (h *EngagementHandler) Register(r gin.IRouter) {
	r.POST("/engagements", h.Start)
	r.GET("/engagements", h.List)
	r.GET("/engagements/:id", h.Get)
	r.POST("/engagements/:id/details", h.SubmitDetail)
	r.POST("/engagements/:id/finish", h.Finish)
}

func (h *EngagementHandler) Start(c *gin.Context) {
	var req dto.StartEngagementRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.StartEngagement(c.Request.Context(), currentUser(c), req.WorkflowCollectionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *EngagementHandler) List(c *gin.Context) {
	out, err := h.service.ListEngagements(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *EngagementHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.service.GetEngagement(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EngagementHandler) SubmitDetail(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitDetailRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.SubmitDetail(c.Request.Context(), currentUser(c), id, req.WorkflowStepID, req.UserResponse, req.Finished)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EngagementHandler) Finish(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.service.FinishEngagement(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
