package handler

import (
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AssignmentHandler struct {
	service service.AssignmentService
}

func NewAssignmentHandler(svc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

func (h *AssignmentHandler) Register(r gin.IRouter) {
	r.POST("/assignments", h.Create)
	r.GET("/assignments", h.List)
	r.GET("/assignments/:id", h.Get)
	r.PATCH("/assignments/:id", h.UpdateStatus)
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// List returns the caller's assignments, or ?user_id=<uuid>'s. ?open=true
// limits the result to ASSIGNED and IN_PROGRESS.
func (h *AssignmentHandler) List(c *gin.Context) {
	userID := currentUser(c)
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user_id", Kind: "structural", Field: "user_id"})
			return
		}
		userID = id
	}

	out, err := h.service.ListAssignments(c.Request.Context(), userID, c.Query("open") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	out, err := h.service.GetAssignment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
