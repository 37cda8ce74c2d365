package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"library-client/library"
)

// Login exchanges credentials for a token. The reply keeps the raw JSON in
// Raw so the caller can persist it verbatim.
func (c *Client) Login(ctx context.Context, creds library.Credentials) (*library.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account; the reply has the same shape as Login.
func (c *Client) Register(ctx context.Context, reg library.Registration) (*library.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body any) (*library.AuthResponse, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, endpoint, &RequestOptions{Method: http.MethodPost, Body: body, NoAuth: true}, &raw); err != nil {
		return nil, err
	}
	var resp library.AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	resp.Raw = raw
	return &resp, nil
}

// ListBooks fetches the book envelope.
func (c *Client) ListBooks(ctx context.Context) (library.Page[library.Book], error) {
	var page library.Page[library.Book]
	err := c.Do(ctx, "/books", nil, &page)
	return page, err
}

// CreateBook adds a book.
func (c *Client) CreateBook(ctx context.Context, in library.BookInput) error {
	return c.Do(ctx, "/books", &RequestOptions{Method: http.MethodPost, Body: in}, nil)
}

// UpdateBook replaces the fields of book id.
func (c *Client) UpdateBook(ctx context.Context, id int64, in library.BookInput) error {
	return c.Do(ctx, "/books/"+strconv.FormatInt(id, 10), &RequestOptions{Method: http.MethodPut, Body: in}, nil)
}

// DeleteBook removes book id.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.Do(ctx, "/books/"+strconv.FormatInt(id, 10), &RequestOptions{Method: http.MethodDelete}, nil)
}

// ListUsers fetches the admin user envelope.
func (c *Client) ListUsers(ctx context.Context) (library.Page[library.User], error) {
	var page library.Page[library.User]
	err := c.Do(ctx, "/admin/users", nil, &page)
	return page, err
}

// ChangeUserRole sets the role of user id.
func (c *Client) ChangeUserRole(ctx context.Context, id int64, role library.Role) error {
	endpoint := fmt.Sprintf("/admin/users/%d/role?newRole=%s", id, url.QueryEscape(string(role)))
	return c.Do(ctx, endpoint, &RequestOptions{Method: http.MethodPut}, nil)
}

// SetUserStatus activates or deactivates user id.
func (c *Client) SetUserStatus(ctx context.Context, id int64, active bool) error {
	endpoint := fmt.Sprintf("/admin/users/%d/status?active=%t", id, active)
	return c.Do(ctx, endpoint, &RequestOptions{Method: http.MethodPut}, nil)
}

// Stats fetches the aggregate counters.
func (c *Client) Stats(ctx context.Context) (*library.Stats, error) {
	var stats library.Stats
	if err := c.Do(ctx, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
