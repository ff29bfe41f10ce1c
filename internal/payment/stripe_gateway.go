package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"commerce-agent/internal/domain"
)

// checkoutAPI is the slice of the Stripe client used by Gateway.
// *session.Client (client.API.CheckoutSessions) satisfies it.
type checkoutAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Gateway creates Stripe Checkout sessions for resolved products.
type Gateway struct {
	sessions   checkoutAPI
	successURL string
	cancelURL  string
}

// New creates a Gateway with its own Stripe client. frontendURL is the base
// the shopper is sent back to after checkout.
func New(apiKey, frontendURL string) (*Gateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("payment: api key must not be empty")
	}
	frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if frontendURL == "" {
		return nil, errors.New("payment: frontend URL must not be empty")
	}

	sc := &client.API{}
	sc.Init(apiKey, nil)

	return &Gateway{
		sessions:   sc.CheckoutSessions,
		successURL: frontendURL + "/success",
		cancelURL:  frontendURL + "/cancel",
	}, nil
}

// CreateCheckoutSession opens a one-item card checkout for the product and
// returns the redirect URL.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, product domain.ProductSummary) (string, error) {
	if product.ID == "" || product.Name == "" {
		return "", errors.New("payment: product id and name are required")
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(product.Name),
					},
					UnitAmount: stripe.Int64(priceInCents(product.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("payment: create checkout session for %s: %w", product.ID, err)
	}
	if session.URL == "" {
		return "", errors.New("payment: checkout session carries no redirect URL")
	}
	return session.URL, nil
}

// priceInCents converts a catalog dollar price to the integer amount Stripe
// expects.
func priceInCents(price float64) int64 {
	return int64(math.Round(price * 100))
}
