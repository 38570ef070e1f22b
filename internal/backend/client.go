package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/webinarium/roomchat/internal/domain"
)

const requestTimeout = 10 * time.Second

// Client talks to the external CMS: room metadata reads and the
// moderation event side-channel. All durable state lives on that side.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a CMS client for baseURL. A nil httpClient gets a
// default with a request timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// GuestList reads the room's registered guest list. configured is false
// when the room metadata carries no guest list at all, which means the
// room is unrestricted.
func (c *Client) GuestList(ctx context.Context, roomID string) (guests []domain.GuestRecord, configured bool, err error) {
	endpoint := c.baseURL + "/rooms/" + url.PathEscape(roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching room metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetching room metadata: status %d", resp.StatusCode)
	}

	var meta struct {
		Guests *[]domain.GuestRecord `json:"guests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, false, fmt.Errorf("decoding room metadata: %w", err)
	}
	if meta.Guests == nil {
		return nil, false, nil
	}
	return *meta.Guests, true, nil
}

// PostEvent pushes a control event over the HTTP side-channel, used as a
// complement to the live transport for settings propagation. Callers
// treat failures as non-fatal.
func (c *Client) PostEvent(ctx context.Context, roomID string, evt domain.Event) error {
	body, err := json.Marshal(map[string]any{
		"type": "event",
		"data": evt,
	})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/chat/" + url.PathEscape(roomID) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("posting event: status %d", resp.StatusCode)
	}
	return nil
}
