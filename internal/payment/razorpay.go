package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the Razorpay Orders API.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a gateway client.  timeout bounds every request,
// including reading the response body.
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// KeyID returns the public key id clients need to open the checkout.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder registers a new order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, in OrderRequest) (*Order, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", ErrInvalidResponse, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrGatewayUnavailable, err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: timeout after %s", ErrGatewayUnavailable, time.Since(start))
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	entry := c.log.WithFields(logrus.Fields{
		"receipt":  in.Receipt,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	switch {
	case resp.StatusCode >= 500:
		entry.Warn("gateway server error")
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var e errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) == nil && e.Error.Description != "" {
			entry.WithField("code", e.Error.Code).Warn("gateway rejected order")
			return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, e.Error.Description)
		}
		entry.Warn("gateway rejected order")
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrInvalidResponse, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order id missing", ErrInvalidResponse)
	}
	entry.WithField("order_id", order.ID).Debug("gateway order created")
	return &order, nil
}
