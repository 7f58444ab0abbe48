package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/calls"
)

func (a *API) ListCallLogs(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := a.calls.List(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_logs": list})
}

func (a *API) GetCallLog(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	log, msgs, err := a.calls.Get(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"call_log": log, "messages": msgs}
	analysis, err := a.calls.GetAnalysis(c.Request.Context(), id.UserID, c.Param("id"))
	if err == nil {
		resp["analysis"] = analysis
	} else if !errors.Is(err, calls.ErrNotFound) {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) CallLogStats(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	stats, err := a.calls.Stats(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (a *API) MarkCallLogRead(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := a.calls.MarkRead(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (a *API) DeleteCallLog(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := a.calls.Delete(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (a *API) AnalyzeCallLog(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	analysis, err := a.calls.Analyze(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}
