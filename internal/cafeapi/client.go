package cafeapi

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

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 4 << 20

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	Message  string          `json:"message,omitempty"`
	OrderID  int64           `json:"order_id,omitempty"`
	Verified bool            `json:"verified"`
	Customer *Member         `json:"customer,omitempty"`
}

// Client talks to the café HTTP API. Every response is a JSON envelope; any
// success=false body becomes a *RejectionError, anything else that goes wrong
// becomes a *TransportError.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &env); err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0)
	if err := decodeData("list products", env.Data, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &env); err != nil {
		return nil, err
	}
	categories := make([]catalog.Category, 0)
	if err := decodeData("list categories", env.Data, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*Member, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &env); err != nil {
		return nil, err
	}
	var member Member
	if err := decodeData("login", env.Data, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	var env envelope
	return c.do(ctx, http.MethodPost, "/api/auth/register", reg, &env)
}

// CreateOrder returns the new order id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (int64, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &env); err != nil {
		return 0, err
	}
	if env.OrderID == 0 {
		return 0, &TransportError{Op: "create order", Err: fmt.Errorf("response has no order_id")}
	}
	return env.OrderID, nil
}

// ListOrders lists order summaries, restricted to one customer when
// customerID is non-zero.
func (c *Client) ListOrders(ctx context.Context, customerID int64) ([]OrderSummary, error) {
	path := "/api/orders"
	if customerID != 0 {
		path += "?customer_id=" + strconv.FormatInt(customerID, 10)
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	orders := make([]OrderSummary, 0)
	if err := decodeData("list orders", env.Data, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) OrderDetails(ctx context.Context, orderID int64) ([]OrderLine, error) {
	var env envelope
	path := fmt.Sprintf("/api/orders/%d/details", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	lines := make([]OrderLine, 0)
	if err := decodeData("order details", env.Data, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) VerifyCustomer(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/api/customers/verify", req, &env); err != nil {
		return nil, err
	}
	return &VerifyResult{
		Verified: env.Verified && env.Customer != nil,
		Customer: env.Customer,
		Message:  env.Message,
	}, nil
}

func (c *Client) GetPreferences(ctx context.Context, customerID int64) (*MemberPreferences, error) {
	q := url.Values{}
	q.Set("customer_id", strconv.FormatInt(customerID, 10))

	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/member/preferences?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	prefs := MemberPreferences{
		Preferences: make([]Preference, 0),
		Favorites:   make([]Favorite, 0),
	}
	if err := decodeData("get preferences", env.Data, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (c *Client) SavePreference(ctx context.Context, customerID int64, prefType, value string) error {
	var env envelope
	body := savePreferenceRequest{CustomerID: customerID, Type: prefType, Value: value}
	return c.do(ctx, http.MethodPost, "/api/member/preferences", body, &env)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out *envelope) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("cafeapi: request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		log.Error().Err(err).Str("op", op).Int("status", resp.StatusCode).Msg("cafeapi: undecodable response")
		return &TransportError{Op: op, Err: fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)}
	}

	if !out.Success {
		rej := &RejectionError{Status: resp.StatusCode, Code: out.Error, Message: out.Message}
		if rej.Code == "" {
			rej.Code = http.StatusText(resp.StatusCode)
		}
		log.Warn().Str("op", op).Int("status", resp.StatusCode).Str("code", rej.Code).Msg("cafeapi: request rejected")
		return rej
	}

	return nil
}

func decodeData(op string, data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
