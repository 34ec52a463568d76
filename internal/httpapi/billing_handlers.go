package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

var stripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")

func init() {
	// Set Stripe API key from environment
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// premiumPriceCents is the monthly price of the premium plan ($5.00).
const premiumPriceCents = 500

// handleCreateCheckout creates a Stripe Checkout session for upgrading
func (r *Router) handleCreateCheckout(w http.ResponseWriter, req *http.Request) {
	authUser := getAuthUser(req.Context())

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Speakify Premium"),
						Description: stripe.String("Unlimited text-to-speech conversions"),
					},
					UnitAmount: stripe.Int64(premiumPriceCents),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(r.cfg.PublicBaseURL + "/dashboard?payment=success"),
		CancelURL:  stripe.String(r.cfg.PublicBaseURL + "/dashboard?payment=cancelled"),
		// Identifies the user in the completed-checkout webhook.
		ClientReferenceID: stripe.String(authUser.ID),
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		r.logger.Printf("billing: failed to create checkout session: %v", err)
		http.Error(w, `{"error": "failed to create checkout session"}`, http.StatusInternalServerError)
		return
	}

	if s.Customer != nil {
		if err := r.store.SetStripeCustomerID(req.Context(), authUser.ID, s.Customer.ID); err != nil {
			r.logger.Printf("billing: failed to save customer id for user %s: %v", authUser.ID, err)
		}
	}

	r.logger.Printf("billing: created checkout session %s for user %s", s.ID, authUser.ID)

	writeJSON(w, http.StatusOK, map[string]string{
		"url":        s.URL,
		"session_id": s.ID,
	})
}

// handleStripeWebhook processes Stripe webhook events
func (r *Router) handleStripeWebhook(w http.ResponseWriter, req *http.Request) {
	const MaxBodyBytes = int64(65536)
	req.Body = http.MaxBytesReader(w, req.Body, MaxBodyBytes)

	body, err := io.ReadAll(req.Body)
	if err != nil {
		r.logger.Printf("billing webhook: failed to read body: %v", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	// Verify webhook signature
	sigHeader := req.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(body, sigHeader, stripeWebhookSecret)
	if err != nil {
		r.logger.Printf("billing webhook: signature verification failed: %v", err)
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	r.logger.Printf("billing webhook: received event %s (type=%s)", event.ID, event.Type)

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			r.logger.Printf("billing webhook: failed to parse session: %v", err)
			http.Error(w, "failed to parse event", http.StatusBadRequest)
			return
		}
		r.handleCheckoutCompleted(&session)

	case "customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			r.logger.Printf("billing webhook: failed to parse subscription: %v", err)
			http.Error(w, "failed to parse event", http.StatusBadRequest)
			return
		}
		r.handleSubscriptionDeleted(&subscription)

	default:
		r.logger.Printf("billing webhook: unhandled event type %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutCompleted upgrades the paying user to premium with an
// unlimited monthly budget.
func (r *Router) handleCheckoutCompleted(session *stripe.CheckoutSession) {
	userID := session.ClientReferenceID
	if userID == "" {
		r.logger.Printf("billing webhook: checkout session %s missing client_reference_id", session.ID)
		return
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	// Use background context since webhooks are async
	ctx := context.Background()
	if err := r.store.ActivatePremium(ctx, userID, customerID); err != nil {
		r.logger.Printf("billing webhook: failed to upgrade user %s: %v", userID, err)
		return
	}

	r.logger.Printf("billing webhook: upgraded user %s to premium", userID)
}

// handleSubscriptionDeleted downgrades the user back to the free tier and
// resets their usage counter.
func (r *Router) handleSubscriptionDeleted(subscription *stripe.Subscription) {
	if subscription.Customer == nil {
		r.logger.Printf("billing webhook: subscription %s has no customer", subscription.ID)
		return
	}

	ctx := context.Background()
	userID, err := r.store.DowngradeByStripeCustomer(ctx, subscription.Customer.ID, r.cfg.FreeMonthlyTokenLimit)
	if err != nil {
		r.logger.Printf("billing webhook: no user found for customer %s: %v", subscription.Customer.ID, err)
		return
	}

	r.logger.Printf("billing webhook: subscription cancelled, user %s downgraded to free", userID)
}
