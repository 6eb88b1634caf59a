package dto

type CreateCheckoutRequest struct {
	PriceID string `json:"priceId"`
}

type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

type PortalSessionResponse struct {
	URL string `json:"url"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// EntitlementResponse is what the post-checkout poller reads until it
// observes plan == "paid" or gives up.
type EntitlementResponse struct {
	Plan        string `json:"plan"`
	HasCustomer bool   `json:"has_customer"`
}
