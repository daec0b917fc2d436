// Package portal is the client for the restaurant backend API
package portal

import (
	"context"
	"fmt"

	"github.com/jrsteele09/restaurant-portal/gateway"
)

const DefaultAppCode = "ADMIN"

const (
	pathCurrentUser = "/users/me"
	pathSitemap     = "/identity-service/api/resource/sitemap"
)

// Requester is implemented by *gateway.Gateway
type Requester interface {
	Get(ctx context.Context, rawURL string, opts gateway.Options) (*gateway.Response, error)
	Put(ctx context.Context, rawURL string, data any, opts gateway.Options) (*gateway.Response, error)
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ProfileUpdate carries only the fields to change
type ProfileUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

type Client struct {
	api Requester
}

func NewClient(api Requester) *Client {
	return &Client{api: api}
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := c.api.Get(ctx, pathCurrentUser, gateway.Options{})
	if err != nil {
		return nil, err
	}
	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("[portal CurrentUser] %w", err)
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	resp, err := c.api.Put(ctx, pathCurrentUser, update, gateway.Options{})
	if err != nil {
		return nil, err
	}
	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("[portal UpdateProfile] %w", err)
	}
	return &user, nil
}

// Sitemap fetches the menu tree of an application, ADMIN when appCode is empty
func (c *Client) Sitemap(ctx context.Context, appCode string) (Menu, error) {
	if appCode == "" {
		appCode = DefaultAppCode
	}
	resp, err := c.api.Get(ctx, pathSitemap, gateway.Options{Params: map[string]string{"appCode": appCode}})
	if err != nil {
		return nil, err
	}
	var menu Menu
	if err := resp.Decode(&menu); err != nil {
		return nil, fmt.Errorf("[portal Sitemap] %w", err)
	}
	return menu, nil
}
