package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
)

func (a *API) CreateAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req agents.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and type are required")
		return
	}

	agent, err := a.agents.Create(c.Request.Context(), id.UserID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agent": agent})
}

func (a *API) ListAgents(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := a.agents.List(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (a *API) GetAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	agent, err := a.agents.Get(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

func (a *API) UpdateAgentSettings(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var settings agents.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, "malformed settings")
		return
	}
	if err := a.agents.UpdateSettings(c.Request.Context(), id.UserID, c.Param("id"), settings); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type activateRequest struct {
	Activated *bool `json:"activated" binding:"required"`
}

func (a *API) SetAgentActivated(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Activated == nil {
		badRequest(c, "activated is required")
		return
	}
	agent, err := a.agents.SetActivated(c.Request.Context(), id.UserID, c.Param("id"), *req.Activated)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

func (a *API) DeleteAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := a.agents.Delete(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (a *API) GetAgentPhone(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	phone, err := a.numbers.GetByAgent(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone": phone})
}

func (a *API) GetAgentSubscription(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sub, err := a.billing.GetByAgent(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
