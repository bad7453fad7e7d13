package handler

import (
	"context"
	"errors"
	"net/http"

	"go-engage/internal/api/dto"
	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log/ctxlog"
)

const (
	// UserHeader carries the authenticated user's id.
	UserHeader = "X-User-ID"

	userContextKey = "user_id"
)

// RequireUser reads the caller from UserHeader and stores it on the context.
// Loggers derived from the request context with ctxlog carry the user id.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(UserHeader))
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid " + UserHeader})
			return
		}
		c.Set(userContextKey, id)
		ctx := ctxlog.AddFunc(c.Request.Context(), func(context.Context) []interface{} {
			return []interface{}{logkeys.UserID, id.String()}
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func currentUser(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(userContextKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// uuidParam parses a path parameter, writing a 400 when it is not a UUID.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + name, Kind: "structural", Field: name})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "structural"})
		return false
	}
	return true
}

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		structural *domain.StructuralValidationError
		navigation *domain.NavigationOrderError
		schema     *domain.SchemaValidationError
		duplicate  *domain.DuplicateEngagementError
	)

	switch {
	case errors.As(err, &structural):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "structural", Field: structural.Field})
	case errors.As(err, &navigation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "navigation"})
	case errors.As(err, &schema):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "schema", Field: schema.UIIdentifier})
	case errors.Is(err, domain.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "structural", Field: "category"})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error(), Kind: "duplicate"})
	case errors.Is(err, domain.ErrEngagementFinished), errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
