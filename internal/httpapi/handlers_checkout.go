package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	AgentID   string `json:"agent_id" binding:"required"`
	VariantID string `json:"variant_id" binding:"required"`
	Country   string `json:"country"`
}

// CreateCheckout opens a hosted billing session for renting a phone number.
func (a *API) CreateCheckout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "agent_id and variant_id are required")
		return
	}

	url, err := a.billing.CreateCheckout(c.Request.Context(), id.UserID, req.AgentID, req.VariantID, req.Country, id.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout_url": url})
}
