// internal/common/auth/client.go
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/logger"
	"pathfinder-checker/internal/model"
)

// Client performs OAuth2 client-credentials exchanges against a token
// endpoint. Tokens are not cached: each flow that needs authorization
// fetches its own and discards it after use.
type Client struct {
	http   *httpx.Client
	logger logger.Logger
}

func NewClient(httpClient *httpx.Client, log logger.Logger) *Client {
	return &Client{http: httpClient, logger: log}
}

// DiscoverTokenEndpoint attempts OpenID-Connect discovery under
// authContextPath. It returns the advertised token_endpoint when usable and
// the default {authContextPath}/auth/token otherwise.
func (c *Client) DiscoverTokenEndpoint(ctx context.Context, authContextPath string) string {
	base := strings.TrimSuffix(authContextPath, "/")
	fallback := base + "/auth/token"

	resp, err := c.http.Exchange(ctx, http.MethodGet, base+"/.well-known/openid-configuration", map[string]string{
		"Accept": "application/json",
	}, nil)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.logger.Debug("openid discovery unavailable, using default token endpoint", map[string]interface{}{
			"endpoint": fallback,
		})
		return fallback
	}

	doc, ok := resp.Body.(map[string]interface{})
	if !ok {
		return fallback
	}
	endpoint, ok := doc["token_endpoint"].(string)
	if !ok || endpoint == "" {
		return fallback
	}

	c.logger.Info("discovered token endpoint", map[string]interface{}{"endpoint": endpoint})
	return endpoint
}

// ClientCredentialsGrant posts a client_credentials grant with Basic
// credentials. The raw exchange result is returned alongside the parsed
// token so callers can judge conformance of the response itself.
func (c *Client) ClientCredentialsGrant(ctx context.Context, tokenURL, userName, password string) (*model.TokenResponse, *httpx.Response, error) {
	headers := map[string]string{
		"Accept":        "application/json",
		"Content-Type":  "application/x-www-form-urlencoded",
		"Authorization": BasicAuthHeader(userName, password),
	}

	resp, err := c.http.Exchange(ctx, http.MethodPost, tokenURL, headers, map[string]string{
		"grant_type": "client_credentials",
	})
	if err != nil {
		return nil, nil, err
	}

	tok := &model.TokenResponse{}
	if body, ok := resp.Body.(map[string]interface{}); ok {
		if v, ok := body["access_token"].(string); ok {
			tok.AccessToken = v
		}
		if v, ok := body["token_type"].(string); ok {
			tok.TokenType = v
		}
	}
	return tok, resp, nil
}

// BasicAuthHeader builds an Authorization header value for user:pass.
func BasicAuthHeader(userName, password string) string {
	cred := base64.StdEncoding.EncodeToString([]byte(userName + ":" + password))
	return "Basic " + cred
}

// ParseBasicAuth decodes a Basic Authorization header into its two parts.
// Both parts must be present and non-empty.
func ParseBasicAuth(header string) (string, string, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", fmt.Errorf("authorization header is not Basic")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", fmt.Errorf("authorization header is not valid base64: %w", err)
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok || user == "" || pass == "" {
		return "", "", fmt.Errorf("credentials must be two non-empty parts")
	}
	return user, pass, nil
}
