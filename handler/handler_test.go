package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"commerce-agent/internal/domain"
	"commerce-agent/internal/usecase"
)

type stubUseCase struct {
	out usecase.ChatOutput
	err error
	in  usecase.ChatInput
}

func (s *stubUseCase) Chat(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "What size do you wear?"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"I want jeans","userId":"u1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.ChatInput{Message: "I want jeans", UserID: "u1"}, uc.in)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "What size do you wear?", out.Reply)
	require.Nil(t, out.Recommendation)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_RecommendationIsExplicitNull(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hi","userId":"u1"}`))
	require.NoError(t, err)
	require.Contains(t, resp.Body, `"recommendation":null`)
	require.NotContains(t, resp.Body, "checkoutUrl")
}

func TestHandle_RecommendationAndCheckout(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{
		Reply: "Here is what I found that should fit you.",
		Recommendation: &domain.ProductSummary{
			ID:       "p1",
			Name:     "Slim Jeans",
			Image:    "https://img/p1.jpg",
			Price:    59.99,
			Category: "jeans",
		},
		CheckoutURL: "https://checkout.stripe.com/pay/cs_123",
	}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"buy them","userId":"u1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[chatResponse](t, resp.Body)
	require.NotNil(t, out.Recommendation)
	require.Equal(t, "p1", out.Recommendation.ID)
	require.Equal(t, "Slim Jeans", out.Recommendation.Name)
	require.Equal(t, 59.99, out.Recommendation.Price)
	require.Equal(t, "https://checkout.stripe.com/pay/cs_123", out.CheckoutURL)
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
	require.Equal(t, "invalid_body", out.Reason)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "openai_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "openai_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "conversation_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"message":"I want jeans","userId":"u1"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(`{"message":"hi","userId":"u1"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
