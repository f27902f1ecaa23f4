// Package stockotter provides a Go client for the otter-server HTTP API.
package stockotter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls the read-only position book API served by otter-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Position mirrors the API's position representation. Money and quantity
// fields are decimal strings.
type Position struct {
	Ticker       string `json:"ticker"`
	State        string `json:"state"`
	EntryPrice   string `json:"entryPrice"`
	EntryDate    string `json:"entryDate"`
	QtyTotal     string `json:"qtyTotal"`
	QtyRemaining string `json:"qtyRemaining"`
	LastClose    string `json:"lastClose"`
	LastAsOf     string `json:"lastAsOf"`
	UpdatedAt    string `json:"updatedAt"`
	SidewaysDays int    `json:"sidewaysDays"`

	HighestClose  string `json:"highestClose,omitempty"`
	ScaleOutClose string `json:"scaleOutClose,omitempty"`
	ExitPrice     string `json:"exitPrice,omitempty"`
	ExitDate      string `json:"exitDate,omitempty"`
}

// Event mirrors the API's lifecycle event representation.
type Event struct {
	Ticker      string `json:"ticker"`
	EventDate   string `json:"eventDate"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	StateBefore string `json:"stateBefore"`
	StateAfter  string `json:"stateAfter"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Summary holds book-level position counts.
type Summary struct {
	Total       int `json:"total"`
	Entered     int `json:"entered"`
	PartialExit int `json:"partialExit"`
	Exited      int `json:"exited"`
}

// GetPositions retrieves positions; openOnly restricts the list to
// non-EXITED rows.
func (c *Client) GetPositions(ctx context.Context, openOnly bool) ([]Position, error) {
	path := "/api/positions"
	if openOnly {
		path += "?open=true"
	}
	var resp struct {
		Positions []Position `json:"positions"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// GetPosition retrieves the position for one ticker.
func (c *Client) GetPosition(ctx context.Context, ticker string) (*Position, error) {
	var pos Position
	if err := c.get(ctx, "/api/positions/"+url.PathEscape(ticker), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// GetEvents retrieves lifecycle events, optionally filtered by ticker.
// limit <= 0 returns all events.
func (c *Client) GetEvents(ctx context.Context, ticker string, limit int) ([]Event, error) {
	q := url.Values{}
	if ticker != "" {
		q.Set("ticker", ticker)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// GetSummary retrieves book-level counts.
func (c *Client) GetSummary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := c.get(ctx, "/api/summary", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
