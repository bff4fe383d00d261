// Package gateway adapts the Stripe API to service.PaymentGateway.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/savora-food/api/internal/service"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrMissingKey is returned by NewStripe when no secret key is configured.
var ErrMissingKey = errors.New("stripe secret key is required")

// Stripe is a PaymentGateway backed by an explicitly constructed Stripe client.
type Stripe struct {
	api *client.API
}

// NewStripe builds a client for secretKey. backends may be nil to use the
// live Stripe endpoints.
func NewStripe(secretKey string, backends *stripe.Backends) (*Stripe, error) {
	if secretKey == "" {
		return nil, ErrMissingKey
	}
	return &Stripe{api: client.New(secretKey, backends)}, nil
}

func (s *Stripe) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", unwrap(err)
	}
	return c.ID, nil
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, p service.IntentParams) (*service.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, unwrap(err)
	}
	return toIntent(pi), nil
}

// GetPaymentIntent fetches the intent with its latest charge so the payer's
// billing e-mail is available.
func (s *Stripe) GetPaymentIntent(ctx context.Context, id string) (*service.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, unwrap(err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *service.Intent {
	in := &service.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Created:      time.Unix(pi.Created, 0).UTC(),
		PayerEmail:   pi.ReceiptEmail,
	}
	if pi.Customer != nil {
		in.CustomerID = pi.Customer.ID
	}
	if pi.LatestCharge != nil && pi.LatestCharge.BillingDetails != nil && pi.LatestCharge.BillingDetails.Email != "" {
		in.PayerEmail = pi.LatestCharge.BillingDetails.Email
	}
	return in
}

// unwrap reduces a Stripe API error to its human-readable message.
func unwrap(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return errors.New(se.Msg)
	}
	return err
}
