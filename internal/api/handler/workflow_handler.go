package handler

import (
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/service"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	service service.WorkflowService
}

func NewWorkflowHandler(svc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

func (h *WorkflowHandler) Register(r gin.IRouter) {
	r.POST("/workflows", h.Create)
	r.GET("/workflows", h.List)
	r.GET("/workflows/:id", h.Get)
	r.POST("/schemas", h.CreateSchema)
	r.GET("/schemas/:id", h.GetSchema)
}

func (h *WorkflowHandler) Create(c *gin.Context) {
	var req dto.CreateWorkflowRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.CreateWorkflow(c.Request.Context(), currentUser(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *WorkflowHandler) List(c *gin.Context) {
	out, err := h.service.ListWorkflows(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *WorkflowHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	out, err := h.service.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *WorkflowHandler) CreateSchema(c *gin.Context) {
	var req dto.CreateJSONSchemaRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.CreateJSONSchema(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *WorkflowHandler) GetSchema(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	out, err := h.service.GetJSONSchema(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
