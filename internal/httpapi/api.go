// Package httpapi is the dashboard-facing REST surface. Handlers stay
// thin: decode, call the service, map the error. Business rules live in
// the domain packages.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/auth"
	"github.com/Benrobo/nexusai-sub000/internal/billing"
	"github.com/Benrobo/nexusai-sub000/internal/calls"
	"github.com/Benrobo/nexusai-sub000/internal/kb"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/internal/users"
)

// Mailer sends the OTP mail; the rest of notifications stay inside the
// billing service.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, html string) error
}

// API aggregates the services behind the REST routes.
type API struct {
	users   *users.Service
	agents  *agents.Service
	numbers *numbers.Service
	kb      *kb.Service
	calls   *calls.Service
	billing *billing.Service

	authMgr   *auth.Manager
	refresher auth.Refresher
	mailer    Mailer
}

func New(
	usersSvc *users.Service,
	agentsSvc *agents.Service,
	numbersSvc *numbers.Service,
	kbSvc *kb.Service,
	callsSvc *calls.Service,
	billingSvc *billing.Service,
	authMgr *auth.Manager,
	refresher auth.Refresher,
	mailer Mailer,
) *API {
	return &API{
		users:     usersSvc,
		agents:    agentsSvc,
		numbers:   numbersSvc,
		kb:        kbSvc,
		calls:     callsSvc,
		billing:   billingSvc,
		authMgr:   authMgr,
		refresher: refresher,
		mailer:    mailer,
	}
}

// Register mounts all routes. Webhook routes are registered separately by
// their own handlers; everything here is session-guarded except health and
// sign-in.
func (a *API) Register(r gin.IRouter) {
	r.GET("/healthz", a.Health)

	r.POST("/api/auth/signin", a.SignIn)
	r.POST("/api/auth/logout", a.Logout)

	authed := r.Group("/", auth.RequireSession(a.authMgr, a.refresher))

	user := authed.Group("/api/user")
	{
		user.GET("/me", a.Me)
		user.POST("/otp/send", a.SendOTP)
		user.POST("/otp/verify", a.VerifyOTP)
	}

	agent := authed.Group("/api/agent")
	{
		agent.POST("", a.CreateAgent)
		agent.GET("", a.ListAgents)
		agent.GET("/:id", a.GetAgent)
		agent.PATCH("/:id/settings", a.UpdateAgentSettings)
		agent.POST("/:id/activate", a.SetAgentActivated)
		agent.DELETE("/:id", a.DeleteAgent)
		agent.GET("/:id/phone", a.GetAgentPhone)
		agent.GET("/:id/subscription", a.GetAgentSubscription)
	}

	authed.POST("/api/checkout", a.CreateCheckout)

	kbGroup := authed.Group("/api/knowledge-base")
	{
		kbGroup.POST("", a.CreateKnowledgeBase)
		kbGroup.GET("", a.ListKnowledgeBases)
		kbGroup.GET("/:id", a.GetKnowledgeBase)
		kbGroup.DELETE("/:id", a.DeleteKnowledgeBase)
		kbGroup.POST("/:id/link", a.LinkKnowledgeBase)
		kbGroup.DELETE("/:id/link", a.UnlinkKnowledgeBase)
	}

	logs := authed.Group("/api/call-logs")
	{
		logs.GET("", a.ListCallLogs)
		logs.GET("/stats", a.CallLogStats)
		logs.GET("/:id", a.GetCallLog)
		logs.PATCH("/:id/read", a.MarkCallLogRead)
		logs.DELETE("/:id", a.DeleteCallLog)
		logs.POST("/:id/analyze", a.AnalyzeCallLog)
	}
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identity pulls the authenticated tenant or aborts with 401. The session
// middleware makes the missing case unreachable on guarded routes.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return auth.Identity{}, false
	}
	return id, true
}
