package billing

import (
	"context"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/nimbus-saas/backend/config"
)

// CheckoutSession is the provider-side checkout handle returned to the client.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Provider abstracts the payment vendor. The Stripe implementation is the only
// production one; tests use a fake.
type Provider interface {
	// CreateCheckoutSession starts a subscription checkout for the plan. The
	// customerID may be empty for first-time buyers.
	CreateCheckoutSession(ctx context.Context, customerID, planID, referenceID string) (*CheckoutSession, error)
	// CreateBillingPortalSession returns a URL where an existing customer
	// manages their subscription.
	CreateBillingPortalSession(ctx context.Context, customerID string) (string, error)
	// CancelSubscription cancels the provider-side subscription immediately.
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	api *client.API
	cfg config.StripeConfig
}

// NewStripeProvider creates a Stripe-backed provider.
func NewStripeProvider(cfg config.StripeConfig) *StripeProvider {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeProvider{api: api, cfg: cfg}
}

// CreateCheckoutSession starts a Stripe subscription checkout.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID, planID, referenceID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(p.cfg.SuccessURL),
		CancelURL:         stripe.String(p.cfg.CancelURL),
		ClientReferenceID: stripe.String(referenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(planID), Quantity: stripe.Int64(1)},
		},
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.Context = ctx
	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreateBillingPortalSession returns the Stripe customer-portal URL.
func (p *StripeProvider) CreateBillingPortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(p.cfg.PortalURL),
	}
	params.Context = ctx
	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CancelSubscription cancels the Stripe subscription immediately.
func (p *StripeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := p.api.Subscriptions.Cancel(providerSubscriptionID, params)
	return err
}
