package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"

	"commerce-agent/internal/domain"
)

type fakeSessions struct {
	session    *stripe.CheckoutSession
	err        error
	lastParams *stripe.CheckoutSessionParams
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastParams = params
	return f.session, f.err
}

func testProduct() domain.ProductSummary {
	return domain.ProductSummary{
		ID:       "p1",
		Name:     "Slim Jeans",
		Image:    "https://img/p1.jpg",
		Price:    59.99,
		Category: "jeans",
	}
}

func newTestGateway(sessions checkoutAPI) *Gateway {
	return &Gateway{
		sessions:   sessions,
		successURL: "https://shop.example/success",
		cancelURL:  "https://shop.example/cancel",
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "https://shop.example")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")

	_, err = New("sk_test_123", "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "frontend URL")
}

func TestNew_TrimsFrontendURL(t *testing.T) {
	g, err := New("sk_test_123", "https://shop.example/")
	require.NoError(t, err)
	require.Equal(t, "https://shop.example/success", g.successURL)
	require.Equal(t, "https://shop.example/cancel", g.cancelURL)
}

func TestCreateCheckoutSession_HappyPath(t *testing.T) {
	sessions := &fakeSessions{session: &stripe.CheckoutSession{URL: "https://checkout.stripe.com/pay/cs_123"}}
	g := newTestGateway(sessions)

	url, err := g.CreateCheckoutSession(context.Background(), testProduct())
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.com/pay/cs_123", url)

	params := sessions.lastParams
	require.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	require.Len(t, params.LineItems, 1)
	require.Equal(t, "Slim Jeans", *params.LineItems[0].PriceData.ProductData.Name)
	require.Equal(t, int64(5999), *params.LineItems[0].PriceData.UnitAmount)
	require.Equal(t, int64(1), *params.LineItems[0].Quantity)
	require.Equal(t, "https://shop.example/success", *params.SuccessURL)
	require.Equal(t, "https://shop.example/cancel", *params.CancelURL)
}

func TestCreateCheckoutSession_StripeError(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("invalid api key")}
	g := newTestGateway(sessions)

	_, err := g.CreateCheckoutSession(context.Background(), testProduct())
	require.Error(t, err)
	require.Contains(t, err.Error(), "create checkout session")
}

func TestCreateCheckoutSession_MissingProductFields(t *testing.T) {
	g := newTestGateway(&fakeSessions{})

	_, err := g.CreateCheckoutSession(context.Background(), domain.ProductSummary{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestCreateCheckoutSession_NoRedirectURL(t *testing.T) {
	sessions := &fakeSessions{session: &stripe.CheckoutSession{}}
	g := newTestGateway(sessions)

	_, err := g.CreateCheckoutSession(context.Background(), testProduct())
	require.Error(t, err)
	require.Contains(t, err.Error(), "redirect URL")
}

func TestPriceInCents_Rounds(t *testing.T) {
	require.Equal(t, int64(5999), priceInCents(59.99))
	require.Equal(t, int64(1000), priceInCents(9.999))
	require.Equal(t, int64(0), priceInCents(0))
}
