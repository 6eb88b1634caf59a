package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"practiceflow-api/core/constants"
	"practiceflow-api/core/logger"
)

// stripeClient is a typed client for the handful of Stripe endpoints this
// core uses. Requests are form-encoded per Stripe's API conventions.
type stripeClient struct {
	apiBase    string
	secretKey  string
	httpClient *http.Client
}

func newStripeClient(apiBase string, secretKey string) *stripeClient {
	return &stripeClient{
		apiBase:    strings.TrimRight(apiBase, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// stripeCheckoutSession is the session object shape shared by the create
// response and the checkout.session.completed event payload.
type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Customer          string            `json:"customer"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type stripePortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionParams struct {
	PriceID           string
	ClientReferenceID string
	UserID            string
	SuccessURL        string
	CancelURL         string
}

func (c *stripeClient) createCheckoutSession(ctx context.Context, params checkoutSessionParams) (*stripeCheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	// The user id is encoded twice on purpose: the reconciler accepts either
	// field, preferring client_reference_id.
	form.Set("client_reference_id", params.ClientReferenceID)
	form.Set("metadata[supabase_user_id]", params.UserID)

	var session stripeCheckoutSession
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *stripeClient) createPortalSession(ctx context.Context, customerID string, returnURL string) (*stripePortalSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var session stripePortalSession
	if err := c.postForm(ctx, "/v1/billing_portal/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *stripeClient) postForm(ctx context.Context, path string, form url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Error("StripeClient:postForm:NewRequest:Error", "error", err, "path", path)
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("StripeClient:postForm:DoRequest:Error", "error", err, "path", path)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("StripeClient:postForm:ReadBody:Error", "error", err, "path", path)
		return err
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("StripeClient:postForm:APIError", "status", resp.StatusCode, "path", path, "body", string(body))
		return fmt.Errorf("stripe API error: %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		logger.Error("StripeClient:postForm:Unmarshal:Error", "error", err, "path", path)
		return err
	}
	return nil
}

// verifyWebhookSignature checks a Stripe-Signature header against the raw,
// unmodified request body. The header carries a unix timestamp and one or
// more v1 signatures: HMAC-SHA256 over "<timestamp>.<body>" with the webhook
// secret. The timestamp must fall within the replay tolerance window.
func verifyWebhookSignature(payload []byte, header string, secret string, now time.Time) error {
	if header == "" {
		return fmt.Errorf("missing signature header")
	}
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}

	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 {
		return fmt.Errorf("no timestamp in signature header")
	}
	if len(signatures) == 0 {
		return fmt.Errorf("no v1 signatures in signature header")
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > constants.WebhookTimestampTolerance || age < -constants.WebhookTimestampTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("no matching v1 signature")
}
