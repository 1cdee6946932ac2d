package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inventory-bot-backend/internal/model"
)

// OrderResponse represents one order in the API response.
type OrderResponse struct {
	ID         int64             `json:"id"`
	MaterialID int64             `json:"materialId"`
	Material   string            `json:"material"`
	ProviderID int64             `json:"providerId"`
	Provider   string            `json:"provider"`
	Quantity   int               `json:"quantity"`
	Status     model.OrderStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ordersCacheKey gives every spelling of the same status filter one cache entry.
// Rejected filters are not cached.
func ordersCacheKey(c *gin.Context) string {
	status := c.DefaultQuery("status", string(model.OrderPending))
	if status != "all" && !model.OrderStatus(status).Valid() {
		return ""
	}
	return "orders:" + status
}

// ListOrders handles GET /api/orders?status=. The status defaults to pending; "all" disables the filter.
func (h *Handler) ListOrders(c *gin.Context) {
	status := model.OrderStatus(c.DefaultQuery("status", string(model.OrderPending)))
	if status == "all" {
		status = ""
	} else if !status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	orders, err := h.store.ListOrders(c.Request.Context(), status)
	if err != nil {
		h.log.WithError(err).Error("failed to list orders")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve orders"})
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, OrderResponse{
			ID:         o.ID,
			MaterialID: o.MaterialID,
			Material:   o.Material.Name,
			ProviderID: o.ProviderID,
			Provider:   o.Provider.Name,
			Quantity:   o.Quantity,
			Status:     o.Status,
			CreatedAt:  o.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}
