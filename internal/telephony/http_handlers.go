package telephony

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

// Handler exposes the provider-facing voice webhooks. Every response is
// TwiML: the provider retries or drops the call on anything else, so even
// malformed requests get a spoken error cue rather than a JSON body.
type Handler struct {
	svc *CallService
}

func NewHandler(svc *CallService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/api/webhooks/twilio/voice", h.IncomingCall)
	r.POST("/api/voice/process/anti-theft", h.process(agents.TypeAntiTheft))
	r.POST("/api/voice/process/sales-assistant", h.process(agents.TypeSalesAssistant))
}

func (h *Handler) IncomingCall(c *gin.Context) {
	form, err := ParseInboundForm(c.Request)
	if err != nil {
		logger.FromGin(c).Warn("unparseable voice webhook", "err", err)
		h.render(c, h.svc.cueHangup(CueErrorOccurred))
		return
	}
	h.render(c, h.svc.HandleIncomingCall(c.Request.Context(), form))
}

func (h *Handler) process(agentType agents.AgentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := ParseInboundForm(c.Request)
		if err != nil {
			logger.FromGin(c).Warn("unparseable voice turn", "err", err)
			h.render(c, h.svc.cueHangup(CueErrorOccurred))
			return
		}
		h.render(c, h.svc.ProcessTurn(c.Request.Context(), agentType, form))
	}
}

func (h *Handler) render(c *gin.Context, resp VoiceResponse) {
	body, err := RenderTwiML(resp)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		body, _ = RenderTwiML(h.svc.cueHangup(CueErrorOccurred))
	}
	c.Data(http.StatusOK, "application/xml", []byte(body))
}
