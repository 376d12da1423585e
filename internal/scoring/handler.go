package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/loan-risk/pkg/logger"
	"github.com/richxcame/loan-risk/pkg/middleware"
	"go.uber.org/zap"
)

const (
	MessageProcessed = "Application processed successfully!"
	MessageDuplicate = "Duplicate application allowed. Entry ignored or overwritten."
	MessageServerErr = "An unexpected server error occurred."
	MessageBadBody   = "invalid request body"
	MessageTooLarge  = "request body too large"
)

// Scorer is the service surface the handler needs
type Scorer interface {
	Score(ctx context.Context, payload *ApplicationPayload, meta RequestMeta) (*ScoreResult, error)
}

// Handler handles HTTP requests for scoring
type Handler struct {
	service            Scorer
	includeProbability bool
}

// NewHandler creates a new scoring handler
func NewHandler(service Scorer, includeProbability bool) *Handler {
	return &Handler{service: service, includeProbability: includeProbability}
}

// RegisterRoutes registers scoring routes
func (h *Handler) RegisterRoutes(r gin.IRoutes, mw ...gin.HandlerFunc) {
	r.POST("/predict", append(mw, h.Predict)...)
}

// Predict scores a loan application
func (h *Handler) Predict(c *gin.Context) {
	payload, status, msg := decodePayload(c.Request.Body)
	if status != 0 {
		c.JSON(status, ErrorBody{Error: msg})
		return
	}

	meta := RequestMeta{
		RequestID:  middleware.GetCorrelationID(c),
		ObservedIP: c.ClientIP(),
	}

	result, err := h.service.Score(c.Request.Context(), payload, meta)
	if err != nil {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("request_id", meta.RequestID)
				hub.CaptureException(err)
			})
		}
		logger.WithContext(c.Request.Context()).Error("predict failed", zap.Error(err))
		RespondServerError(c)
		return
	}

	if result.Duplicate() {
		c.JSON(http.StatusOK, PredictResponse{Message: MessageDuplicate})
		return
	}

	resp := PredictResponse{
		Message:   MessageProcessed,
		RiskScore: &result.RiskScore,
	}
	if h.includeProbability {
		resp.FraudProbability = &result.FraudProbability
	}
	c.JSON(http.StatusOK, resp)
}

// RespondServerError writes the fixed, non-leaking 500 body
func RespondServerError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: MessageServerErr})
}

// decodePayload accepts any JSON object. Field-level problems never fail the
// request; only a body that is not an object does.
func decodePayload(body io.Reader) (*ApplicationPayload, int, string) {
	if body == nil {
		return nil, http.StatusBadRequest, MessageBadBody
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, MessageTooLarge
		}
		return nil, http.StatusBadRequest, MessageBadBody
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, http.StatusBadRequest, MessageBadBody
	}

	var payload ApplicationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, http.StatusBadRequest, MessageBadBody
	}
	return &payload, 0, ""
}
