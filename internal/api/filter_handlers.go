package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/serverwatch/notifier/internal/middleware"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/service"
)

// FilterHandler exposes the filter commands of the chat layer
type FilterHandler struct {
	store *service.SubscriptionStore
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(store *service.SubscriptionStore) *FilterHandler {
	return &FilterHandler{store: store}
}

// AddFilterRequest is the body of a filter registration
type AddFilterRequest struct {
	Username string `json:"username"`
	models.Filter
}

// FilterView is a filter as listed back to its owner
type FilterView struct {
	Index       int           `json:"index"`
	Filter      models.Filter `json:"filter"`
	Description string        `json:"description"`
}

func newFilterView(index int, filter models.Filter) FilterView {
	return FilterView{Index: index, Filter: filter, Description: filter.String()}
}

// AddFilter handles POST /api/subscribers/:id/filters
func (h *FilterHandler) AddFilter(c *gin.Context) {
	subscriberID := c.Param("id")

	var req AddFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	index, err := h.store.AddFilter(c.Request.Context(), subscriberID, req.Username, req.Filter)
	if err != nil {
		if errors.Is(err, models.ErrInvalidFilter) {
			middleware.HandleAppError(c, middleware.NewValidationError(err))
			return
		}
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusCreated, newFilterView(index, req.Filter))
}

// ListFilters handles GET /api/subscribers/:id/filters
func (h *FilterHandler) ListFilters(c *gin.Context) {
	subscriberID := c.Param("id")
	filters := h.store.GetFilters(subscriberID)

	views := make([]FilterView, len(filters))
	for i, filter := range filters {
		views[i] = newFilterView(i, filter)
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriber_id": subscriberID,
		"filters":       views,
		"count":         len(views),
	})
}

// RemoveFilter handles DELETE /api/subscribers/:id/filters/:index
func (h *FilterHandler) RemoveFilter(c *gin.Context) {
	subscriberID := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError("Filter index must be an integer"))
		return
	}

	removed, err := h.store.RemoveFilter(c.Request.Context(), subscriberID, index)
	if err != nil {
		if errors.Is(err, models.ErrFilterIndex) {
			middleware.HandleAppError(c, &middleware.AppError{
				StatusCode: http.StatusNotFound,
				Code:       "FILTER_INDEX_OUT_OF_RANGE",
				Message:    "No filter at that index",
				Err:        err,
			})
			return
		}
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": newFilterView(index, removed),
	})
}

// ClearFilters handles DELETE /api/subscribers/:id/filters
func (h *FilterHandler) ClearFilters(c *gin.Context) {
	count, err := h.store.ClearFilters(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cleared": count,
	})
}

// GetCatalog handles GET /api/catalog
func (h *FilterHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Catalog())
}
