package graph

import (
	"context"
	"net/url"
	"strings"

	"github.com/blacktop/fbpost/internal/fbpost"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type accountsResponse struct {
	Data []fbpost.Page `json:"data"`
}

// ExchangeToken trades the client's short-lived user token for a long-lived one.
func (c *Client) ExchangeToken(ctx context.Context, appID, appSecret string) (string, error) {
	if err := c.requireCredentials(false); err != nil {
		return "", err
	}
	appID, appSecret = strings.TrimSpace(appID), strings.TrimSpace(appSecret)
	var missing []string
	if appID == "" {
		missing = append(missing, "app id")
	}
	if appSecret == "" {
		missing = append(missing, "app secret")
	}
	if len(missing) > 0 {
		return "", fbpost.ConfigurationError{Missing: missing}
	}

	endpoint, err := c.endpoint("oauth", "access_token")
	if err != nil {
		return "", err
	}
	req, err := c.newGetRequest(ctx, endpoint, url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {c.cfg.AccessToken},
	})
	if err != nil {
		return "", err
	}

	var res tokenResponse
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", fbpost.RemoteAPIError{Message: "token exchange returned no access token"}
	}
	return res.AccessToken, nil
}

// Accounts lists the pages the token's user manages, with page tokens.
func (c *Client) Accounts(ctx context.Context) ([]fbpost.Page, error) {
	if err := c.requireCredentials(false); err != nil {
		return nil, err
	}

	endpoint, err := c.endpoint("me", "accounts")
	if err != nil {
		return nil, err
	}
	req, err := c.newGetRequest(ctx, endpoint, url.Values{
		"access_token": {c.cfg.AccessToken},
		"fields":       {"id,name,access_token"},
	})
	if err != nil {
		return nil, err
	}

	var res accountsResponse
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}
