package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EndpointRefresher exchanges a stale token by POSTing it as a bearer
// credential to URL. The response must be 200 with a JSON body carrying
// "access_token" or "token".
type EndpointRefresher struct {
	// URL of the refresh endpoint. Required.
	URL string

	// Client sends the exchange. Default: http.DefaultClient.
	Client *http.Client
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// Refresh implements Refresher.
func (r *EndpointRefresher) Refresh(ctx context.Context, stale string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+stale)
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRefreshFailed, err)
	}
	tok := strings.TrimSpace(body.AccessToken)
	if tok == "" {
		tok = strings.TrimSpace(body.Token)
	}
	if tok == "" {
		return "", ErrMissingCredentials
	}
	return tok, nil
}
