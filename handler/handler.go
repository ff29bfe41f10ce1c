package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"commerce-agent/internal/usecase"
)

// ChatUseCase is the single operation the handler fronts.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Handler struct {
	chat ChatUseCase
}

func NewHandler(chat ChatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat}, nil
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type productPayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// chatResponse is the success body. Recommendation is an explicit null when
// the turn produced no pick.
type chatResponse struct {
	Reply          string          `json:"reply"`
	Recommendation *productPayload `json:"recommendation"`
	CheckoutURL    string          `json:"checkoutUrl,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)
	log := slog.With("correlationId", correlationID)

	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		log.Warn("invalid request body", "err", err)
		return errorReply(http.StatusBadRequest, correlationID, errorResponse{
			Error:  string(usecase.ErrorInvalidInput),
			Reason: "invalid_body",
		}), nil
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{Message: req.Message, UserID: req.UserID})
	if err != nil {
		status, body := mapError(err)
		logError(log, status, err)
		return errorReply(status, correlationID, body), nil
	}

	resp := chatResponse{Reply: out.Reply, CheckoutURL: out.CheckoutURL}
	if out.Recommendation != nil {
		resp.Recommendation = &productPayload{
			ID:       out.Recommendation.ID,
			Name:     out.Recommendation.Name,
			Image:    out.Recommendation.Image,
			Price:    out.Recommendation.Price,
			Category: out.Recommendation.Category,
		}
	}
	return jsonReply(http.StatusOK, correlationID, resp), nil
}

func mapError(err error) (int, errorResponse) {
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}

	body := errorResponse{Error: string(usecaseErr.Code), Reason: usecaseErr.Reason}
	switch usecaseErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, body
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, body
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, body
	case usecase.ErrorInternal:
		return http.StatusInternalServerError, body
	default:
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
}

func logError(log *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error("chat failed", "status", status, "err", err)
		return
	}
	log.Warn("chat rejected", "status", status, "err", err)
}

func correlationIDFrom(headers map[string]string) string {
	for name, value := range headers {
		if strings.EqualFold(name, "X-Correlation-Id") && value != "" {
			return value
		}
	}
	return uuid.NewString()
}

func jsonReply(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		// Marshal of our own response types cannot fail in practice.
		slog.Error("marshal response", "err", err)
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(raw),
	}
}

func errorReply(status int, correlationID string, body errorResponse) events.APIGatewayProxyResponse {
	return jsonReply(status, correlationID, body)
}
