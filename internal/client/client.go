// Package client queries a running car price predictor over its JSON API.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response mirrors the /api/predict success body.
type Response struct {
	Transmission        int     `json:"transmission"`
	MaxPower            float64 `json:"max_power"`
	Price               float64 `json:"price"`
	Message             string  `json:"message"`
	ImputedTransmission bool    `json:"imputed_transmission"`
	ImputedMaxPower     bool    `json:"imputed_max_power"`
}

type request struct {
	Transmission *int     `json:"transmission"`
	MaxPower     *float64 `json:"max_power"`
}

type errorResp struct {
	Message string `json:"message"`
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

// Predict requests an estimate. Nil inputs are imputed by the server.
func (c *Client) Predict(ctx context.Context, transmission *int, maxPower *float64) (Response, error) {
	var (
		result Response
		failed errorResp
	)
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request{Transmission: transmission, MaxPower: maxPower}).
		SetResult(&result).
		SetError(&failed).
		Post(c.base + "/api/predict")
	if err != nil {
		return Response{}, fmt.Errorf("predict request failed: %w", err)
	}
	if resp.IsError() {
		if failed.Message != "" {
			return Response{}, fmt.Errorf("carprice: %d %s", resp.StatusCode(), failed.Message)
		}
		return Response{}, fmt.Errorf("carprice: %d %s", resp.StatusCode(), resp.Status())
	}
	return result, nil
}

// Health returns nil when the server answers /health with 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.rest.R().SetContext(ctx).Get(c.base + "/health")
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("carprice: unhealthy: %s", resp.Status())
	}
	return nil
}
