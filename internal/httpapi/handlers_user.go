package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/auth"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

type signInRequest struct {
	Email              string `json:"email" binding:"required,email"`
	Name               string `json:"name"`
	Avatar             string `json:"avatar"`
	GoogleRefreshToken string `json:"google_refresh_token"`
}

// SignIn completes the dashboard's Google OAuth exchange: the account is
// upserted and the HTTP-only session cookie pair is issued.
func (a *API) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}

	u, err := a.users.SignIn(c.Request.Context(), req.Email, req.Name, req.Avatar, req.GoogleRefreshToken)
	if err != nil {
		respondErr(c, err)
		return
	}

	pair, err := a.authMgr.IssuePair(time.Now(), u.ID, u.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	auth.SetSessionCookies(c, pair.AccessToken, u.ID, a.authMgr.AccessTTL())

	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (a *API) Logout(c *gin.Context) {
	auth.ClearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	u, err := a.users.Get(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (a *API) SendOTP(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	code, err := a.users.SendOTP(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}

	html := fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in 10 minutes.</p>", code)
	if err := a.mailer.SendMail(c.Request.Context(), id.Email, "Your verification code", html); err != nil {
		logger.FromGin(c).Error("otp mail failed", "user_id", id.UserID, "err", err)
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type verifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

func (a *API) VerifyOTP(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}
	if err := a.users.VerifyOTP(c.Request.Context(), id.UserID, req.Code); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}
