// Package api is a client for the example-api HTTP and gRPC endpoints. The
// cookies issued by the server are kept in a session.Store; an expired access
// token is refreshed once with the stored refresh cookie before a call is
// given up as unauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kodasoftware/example-api/internal/client/session"
	"github.com/kodasoftware/example-api/internal/common"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AccountID *string   `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Token struct {
	AccessToken string    `json:"accessToken"`
	Expiry      time.Time `json:"expiry"`
}

type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	grpc    *identityClient
}

// New builds a client for the HTTP API at baseURL and, when grpcAddr is not
// empty, the gRPC identity service.
func New(baseURL, grpcAddr string, store session.Store, timeout time.Duration) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   store,
	}
	if grpcAddr != "" {
		ic, err := newIdentityClient(grpcAddr, c)
		if err != nil {
			return nil, err
		}
		c.grpc = ic
	}
	return c, nil
}

func (c *Client) Close() error {
	if c.grpc != nil {
		return c.grpc.Close()
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	var u User
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.call(ctx, http.MethodPost, "/users", body, false, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	var t Token
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth", body, false, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Refresh trades the stored refresh cookie for a new token pair. The session
// is cleared when the server rejects it.
func (c *Client) Refresh(ctx context.Context) (*Token, error) {
	var t Token
	err := c.call(ctx, http.MethodGet, "/auth", nil, false, &t)
	if errors.Is(err, ErrUnauthorized) {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/users", nil, true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateAccount(ctx context.Context, name string) (*Account, error) {
	var a Account
	if err := c.call(ctx, http.MethodPost, "/accounts", map[string]string{"name": name}, true, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Account(ctx context.Context) (*Account, error) {
	var a Account
	if err := c.call(ctx, http.MethodGet, "/accounts", nil, true, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/accounts", nil, true, nil)
}

// Logout forgets the stored session. Tokens are stateless, so the server is
// not involved.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	return c.store.Get(ctx, common.AccessTokenCookie)
}

// call performs one request. Authenticated calls answered with 401 are
// retried once after a successful refresh.
func (c *Client) call(ctx context.Context, method, path string, in any, authed bool, out any) error {
	err := c.do(ctx, method, path, in, authed, out)
	if !authed || !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return err
	}
	return c.do(ctx, method, path, in, authed, out)
}

func (c *Client) do(ctx context.Context, method, path string, in any, authed bool, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.attachCookies(ctx, req); err != nil {
		return err
	}
	if authed {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		if token == "" {
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.saveCookies(ctx, resp); err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var sessionCookies = []string{
	common.AccessTokenCookie,
	common.AccessTokenCookie + ".sig",
	common.RefreshTokenCookie,
	common.RefreshTokenCookie + ".sig",
}

func (c *Client) attachCookies(ctx context.Context, req *http.Request) error {
	for _, name := range sessionCookies {
		v, err := c.store.Get(ctx, name)
		if err != nil {
			return err
		}
		if v != "" {
			req.AddCookie(&http.Cookie{Name: name, Value: v})
		}
	}
	return nil
}

func (c *Client) saveCookies(ctx context.Context, resp *http.Response) error {
	for _, ck := range resp.Cookies() {
		var err error
		if ck.MaxAge < 0 || ck.Value == "" {
			err = c.store.Delete(ctx, ck.Name)
		} else {
			err = c.store.Set(ctx, ck.Name, ck.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
