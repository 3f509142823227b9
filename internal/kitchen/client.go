package kitchen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/orderflow"
)

var (
	// ErrUnauthorized is returned when the API rejects the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")

	errUndecodable = errors.New("undecodable response")
)

// API is the slice of the order API the dashboard talks to.
// Satisfied by *Client; narrow interface for testability.
type API interface {
	ListOrders(ctx context.Context) ([]Order, error)
	ListOrderItems(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status orderflow.Status) error
	RecordIngredient(ctx context.Context, orderID, itemID uuid.UUID, c Consumption) error
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// Client is an HTTP client for the order API. It keeps the token pair from
// Login and refreshes the access token once when a request gets a 401.
type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Login exchanges credentials for a token pair and returns the logged in user.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", "", body, &resp); err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	c.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp.User, nil
}

// AccessToken returns the current access token.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) setTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	var resp tokenResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.send(ctx, http.MethodPost, "/api/auth/refresh", "", body, &resp); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	c.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// do sends an authenticated request, refreshing the token once on 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.send(ctx, method, path, c.AccessToken(), body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if rerr := c.refresh(ctx); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, c.AccessToken(), body, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w from %s: %v", errUndecodable, path, err)
	}
	return nil
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrderItems fetches the items of a batch of orders. An empty batch is
// answered locally. A rejected or undecodable response counts as no items;
// only transport failures are returned as errors.
func (c *Client) ListOrderItems(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	if len(orderIDs) == 0 {
		return []OrderItem{}, nil
	}

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	var items []OrderItem
	path := "/api/order-items?orderIds=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		var se *StatusError
		if errors.As(err, &se) || errors.Is(err, errUndecodable) {
			log.Printf("WARNING: order items unavailable, showing none: %v", err)
			return []OrderItem{}, nil
		}
		return nil, err
	}
	return items, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// UpdateStatus asks the API to move an order to status.
func (c *Client) UpdateStatus(ctx context.Context, orderID uuid.UUID, status orderflow.Status) error {
	path := fmt.Sprintf("/api/orders/%s/status", orderID)
	return c.do(ctx, http.MethodPatch, path, map[string]string{"status": string(status)}, nil)
}

// RecordIngredient records one consumption against an order item.
func (c *Client) RecordIngredient(ctx context.Context, orderID, itemID uuid.UUID, consumption Consumption) error {
	path := fmt.Sprintf("/api/orders/%s/items/%s/ingredients", orderID, itemID)
	return c.do(ctx, http.MethodPost, path, consumption, nil)
}
