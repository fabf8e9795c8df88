package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/smtp-relay/pkg/config"
	"github.com/telekom/smtp-relay/pkg/metrics"
	"github.com/telekom/smtp-relay/pkg/relay"
)

// RelayController exposes POST /send-mail. The rate limiter is attached
// here rather than server-wide: the docs page, healthz, and metrics stay
// reachable while an abusive sender is throttled.
type RelayController struct {
	log        *zap.SugaredLogger
	config     config.Config
	dispatcher relay.Dispatcher
	middleware []gin.HandlerFunc
}

func NewRelayController(log *zap.SugaredLogger, cfg config.Config, dispatcher relay.Dispatcher, middleware ...gin.HandlerFunc) *RelayController {
	return &RelayController{
		log:        log,
		config:     cfg,
		dispatcher: dispatcher,
		middleware: middleware,
	}
}

func (RelayController) BasePath() string {
	return ""
}

func (rc *RelayController) Register(rg *gin.RouterGroup) error {
	rg.POST("/send-mail", rc.handleSendMail)

	return nil
}

func (rc *RelayController) Handlers() []gin.HandlerFunc {
	return rc.middleware
}

type sendMailRequest struct {
	SMTP *relay.SMTPConfig `json:"smtp"`
	Mail *relay.Envelope   `json:"mail"`
}

func (rc *RelayController) handleSendMail(c *gin.Context) {
	var req sendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RelayRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	if err := relay.ValidateRequest(req.SMTP, req.Mail, rc.config.PortAllowed); err != nil {
		metrics.RelayRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rc.dispatcher.SendMail(c.Request.Context(), *req.SMTP, *req.Mail); err != nil {
		// Every session failure maps to the same response; the dispatcher
		// already logged the cause. Anything else would leak mail-server
		// internals to an untrusted caller.
		metrics.RelayRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   relay.ErrSession.Error(),
		})
		return
	}

	metrics.RelayRequests.WithLabelValues(metrics.OutcomeSent).Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email sent successfully",
	})
}
