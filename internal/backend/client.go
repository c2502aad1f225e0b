package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"riwa-pos/internal/common/config"
	"riwa-pos/internal/domain"
)

const maxErrorBody = 2048

// Client talks to the RIWA REST backend.
type Client struct {
	base  string
	token string
	hc    *http.Client
}

func New(cfg config.Backend) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWithHTTP(cfg.URL, cfg.Token, &http.Client{Timeout: timeout})
}

func NewWithHTTP(base, token string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(base, "/"), token: token, hc: hc}
}

// CreateOrder submits an order. The key travels in the body and in the
// Idempotency-Key header so a replay is recognised as the same submission.
func (c *Client) CreateOrder(ctx context.Context, key string, o domain.Order) (domain.Confirmation, error) {
	req := domain.CreateOrderRequest{Order: o, IdempotencyKey: key}
	var resp domain.CreateOrderResponse
	hdr := http.Header{}
	if key != "" {
		hdr.Set("Idempotency-Key", key)
	}
	if err := c.do(ctx, http.MethodPost, "/orders/create", nil, hdr, req, &resp); err != nil {
		return domain.Confirmation{}, err
	}
	if resp.Order.ID == "" {
		return domain.Confirmation{}, fmt.Errorf("%w: create order: empty order id", ErrMalformed)
	}
	st := resp.Order.Status
	if st == "" {
		st = domain.StatusPending
	}
	return domain.Confirmation{
		OrderID:     resp.Order.ID,
		OrderNumber: resp.Order.OrderNumber,
		Status:      st,
		Total:       resp.Order.Total,
	}, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderID string, status domain.Status) error {
	body := domain.StatusUpdateRequest{OrderID: orderID, Status: status}
	return c.do(ctx, http.MethodPatch, "/orders/update-status", nil, nil, body, nil)
}

func (c *Client) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Orders []OrderRow `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", q, nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(resp.Orders))
	for _, r := range resp.Orders {
		out = append(out, r.Normalize())
	}
	return out, nil
}

// KDSItems lists pending items; station "all" or "" means no filter.
func (c *Client) KDSItems(ctx context.Context, station string) ([]domain.KDSItem, error) {
	q := url.Values{}
	if station != "" && station != "all" {
		q.Set("station", station)
	}
	var resp struct {
		Items []KDSRow `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/kds/items", q, nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.KDSItem, 0, len(resp.Items))
	for _, r := range resp.Items {
		out = append(out, r.Normalize())
	}
	return out, nil
}

func (c *Client) Bump(ctx context.Context, kdsItemID string) error {
	return c.do(ctx, http.MethodPost, "/kds/bump", nil, nil, domain.BumpRequest{KDSItemID: kdsItemID}, nil)
}

// Health probes GET /health; the terminal uses it to detect reconnects.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, in, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrNetwork, method, path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &RejectedError{StatusCode: res.StatusCode, Body: strings.TrimSpace(msg)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformed, method, path, err)
	}
	return nil
}
