package billing

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

const signatureHeader = "X-Signature"

// WebhookHandler terminates the billing provider's webhook endpoint.
type WebhookHandler struct {
	svc    *Service
	secret string
}

func NewWebhookHandler(svc *Service, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

func (h *WebhookHandler) Register(r gin.IRouter) {
	r.POST("/api/webhooks/lemonsqueezy", h.Handle)
}

// Handle verifies, parses and dispatches one webhook delivery. The
// signature is checked against the raw body before anything is decoded;
// an unverified payload never reaches the service.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !VerifySignature(h.secret, body, c.GetHeader(signatureHeader)) {
		logger.FromGin(c).Warn("webhook signature mismatch", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	evt, err := ParseSubscriptionEvent(body)
	if err != nil {
		logger.FromGin(c).Warn("unparseable webhook", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	switch evt.Event {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		if err := h.svc.HandleSubscriptionState(c.Request.Context(), evt); err != nil {
			logger.FromGin(c).Error("subscription event failed", "event", evt.Event, "sub_id", evt.SubID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
			return
		}
	default:
		// Acknowledge everything else so the provider stops retrying.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
