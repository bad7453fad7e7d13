package handler

import (
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/service"

	"github.com/gin-gonic/gin"
)

type CollectionHandler struct {
	service service.CollectionService
}

func NewCollectionHandler(svc service.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: svc}
}

func (h *CollectionHandler) Register(r gin.IRouter) {
	r.POST("/collections", h.Create)
	r.GET("/collections", h.List)
	r.GET("/collections/mine", h.ListMine)
	r.GET("/collections/code/:code", h.GetLatestByCode)
	r.GET("/collections/:id", h.Get)
	r.POST("/collections/:id/recommendations", h.Recommend)
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CreateCollectionRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.CreateCollection(c.Request.Context(), currentUser(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// List supports ?category=SURVEY|ACTIVITY, ?tag=<text> and ?active=false.
func (h *CollectionHandler) List(c *gin.Context) {
	filter := ports.CollectionFilter{
		Category:   domain.CollectionCategory(c.Query("category")),
		ActiveOnly: c.DefaultQuery("active", "true") != "false",
		Tag:        c.Query("tag"),
	}

	out, err := h.service.ListCollections(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CollectionHandler) ListMine(c *gin.Context) {
	out, err := h.service.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CollectionHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	out, err := h.service.GetCollection(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CollectionHandler) GetLatestByCode(c *gin.Context) {
	out, err := h.service.GetLatestByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CollectionHandler) Recommend(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateRecommendationRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.service.Recommend(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
