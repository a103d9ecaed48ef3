// Package users is the client for the external identity service. The core
// only needs a user's id, display name and email; accounts themselves are
// owned by that service.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    16,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: tr, Timeout: timeout},
	}
}

// UserByID fetches a user, retrying transient failures with exponential
// backoff. A 404 surfaces as a not-found domain error; transport failures
// are internal.
func (c *Client) UserByID(ctx context.Context, id string) (*User, error) {
	url := fmt.Sprintf("%s/v1/users/%s", c.baseURL, id)

	var user User
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(apperrors.NotFound("User not found"))
		case resp.StatusCode >= 500:
			return fmt.Errorf("user service returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("user service returned %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&user)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, err
		}
		return nil, apperrors.Internal(err)
	}
	return &user, nil
}
