package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/kb"
)

type createKbRequest struct {
	Name    string           `json:"name" binding:"required"`
	Sources []kb.SourceInput `json:"sources" binding:"required"`
}

func (a *API) CreateKnowledgeBase(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createKbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and sources are required")
		return
	}

	base, err := a.kb.Create(c.Request.Context(), id.UserID, req.Name, req.Sources)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"knowledge_base": base})
}

func (a *API) ListKnowledgeBases(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := a.kb.List(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"knowledge_bases": list})
}

func (a *API) GetKnowledgeBase(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	base, err := a.kb.Get(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"knowledge_base": base})
}

func (a *API) DeleteKnowledgeBase(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := a.kb.Delete(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type linkKbRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

func (a *API) LinkKnowledgeBase(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req linkKbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "agent_id is required")
		return
	}
	if err := a.kb.LinkAgent(c.Request.Context(), id.UserID, req.AgentID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": true})
}

func (a *API) UnlinkKnowledgeBase(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req linkKbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "agent_id is required")
		return
	}
	if err := a.kb.UnlinkAgent(c.Request.Context(), id.UserID, req.AgentID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlinked": true})
}
