// Package gateway provides the HTTP client for the remote seating API.
// It implements seating.Gateway for the admin console's assignment
// store and retries transient gateway failures with jittered
// exponential backoff.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/seating"
)

// StatusError is a non-2xx gateway response.  Message carries the
// human-readable error body when the gateway provided one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

// retryable reports whether a status code is worth retrying.  409 is
// deliberately absent: a capacity or concurrent-modification conflict
// will not resolve by retrying the same request.
func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client talks to the seating gateway over HTTP.  The zero value is
// not usable; construct with NewClient.
type Client struct {
	baseURL     string
	token       string
	httpc       *http.Client
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

var _ seating.Gateway = (*Client)(nil)

// NewClient returns a client for the gateway at baseURL.  token is
// sent as a bearer credential on every request; pass "" for
// unauthenticated read-only use.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 4,
		retryBase:   100 * time.Millisecond,
		retryCap:    2 * time.Second,
	}
}

// Wire shapes mirror the gateway's JSON contract.

type guestJSON struct {
	GuestID        string  `json:"guest_id"`
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	BidderNumber   *int    `json:"bidder_number,omitempty"`
	TableNumber    *int    `json:"table_number"`
	RegistrationID string  `json:"registration_id"`
}

func (g guestJSON) toModel(eventID uint64) model.Guest {
	return model.Guest{
		ID:             g.GuestID,
		EventID:        eventID,
		Name:           g.Name,
		Email:          g.Email,
		BidderNumber:   g.BidderNumber,
		TableNumber:    g.TableNumber,
		RegistrationID: g.RegistrationID,
	}
}

type tableDetailJSON struct {
	TableNumber       int     `json:"table_number"`
	TableName         *string `json:"table_name,omitempty"`
	CustomCapacity    *int    `json:"custom_capacity,omitempty"`
	EffectiveCapacity int     `json:"effective_capacity"`
	CurrentOccupancy  int     `json:"current_occupancy"`
	IsFull            bool    `json:"is_full"`
}

func (d tableDetailJSON) toModel() model.TableDetail {
	return model.TableDetail{
		TableNumber:       d.TableNumber,
		TableName:         d.TableName,
		CustomCapacity:    d.CustomCapacity,
		EffectiveCapacity: d.EffectiveCapacity,
		CurrentOccupancy:  d.CurrentOccupancy,
		IsFull:            d.IsFull,
	}
}

// AutoAssignResult is the gateway's response to a server-side
// auto-assign request.
type AutoAssignResult struct {
	AssignedCount   int      `json:"assigned_count"`
	UnassignedCount int      `json:"unassigned_count"`
	Warnings        []string `json:"warnings"`
}

// ListGuests fetches one page of the event's guest list.
func (c *Client) ListGuests(ctx context.Context, eventID uint64, page, pageSize int) ([]model.Guest, int, error) {
	path := fmt.Sprintf("/v1/events/%d/guests?page=%d&page_size=%d", eventID, page, pageSize)
	var resp struct {
		Guests []guestJSON `json:"guests"`
		Total  int         `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	guests := make([]model.Guest, 0, len(resp.Guests))
	for _, g := range resp.Guests {
		guests = append(guests, g.toModel(eventID))
	}
	return guests, resp.Total, nil
}

// TableGuests fetches the guests seated at one table.
func (c *Client) TableGuests(ctx context.Context, eventID uint64, tableNumber int) ([]model.Guest, error) {
	path := fmt.Sprintf("/v1/events/%d/tables/%d/guests", eventID, tableNumber)
	var resp []guestJSON
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	guests := make([]model.Guest, 0, len(resp))
	for _, g := range resp {
		guests = append(guests, g.toModel(eventID))
	}
	return guests, nil
}

// AssignGuest seats a guest at a table.
func (c *Client) AssignGuest(ctx context.Context, eventID uint64, guestID string, tableNumber int) error {
	path := fmt.Sprintf("/v1/events/%d/assignments", eventID)
	body := map[string]any{"guest_id": guestID, "table_number": tableNumber}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// UnassignGuest returns a guest to the unassigned pool.
func (c *Client) UnassignGuest(ctx context.Context, eventID uint64, guestID string) error {
	path := fmt.Sprintf("/v1/events/%d/assignments/%s", eventID, guestID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListTableDetails fetches customization and occupancy records for all
// tables of the event.
func (c *Client) ListTableDetails(ctx context.Context, eventID uint64) ([]model.TableDetail, error) {
	path := fmt.Sprintf("/v1/events/%d/tables", eventID)
	var resp []tableDetailJSON
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	details := make([]model.TableDetail, 0, len(resp))
	for _, d := range resp {
		details = append(details, d.toModel())
	}
	return details, nil
}

// UpdateTableDetail applies a table customization and returns the
// authoritative record as adjusted by the gateway.
func (c *Client) UpdateTableDetail(ctx context.Context, eventID uint64, tableNumber int, upd seating.TableCustomization) (model.TableDetail, error) {
	path := fmt.Sprintf("/v1/events/%d/tables/%d", eventID, tableNumber)
	var resp tableDetailJSON
	if err := c.do(ctx, http.MethodPatch, path, upd, &resp); err != nil {
		return model.TableDetail{}, err
	}
	return resp.toModel(), nil
}

// ApplyPlacements submits a locally planned batch of placements.  The
// gateway applies the whole batch or none of it.
func (c *Client) ApplyPlacements(ctx context.Context, eventID uint64, placements []seating.Placement) error {
	path := fmt.Sprintf("/v1/events/%d/auto-assign", eventID)
	body := map[string]any{"placements": placements}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// AutoAssign asks the gateway to plan and apply seating for every
// unassigned guest server-side.  This is what the console's
// auto-assign button calls when it does not hold a loaded store.
func (c *Client) AutoAssign(ctx context.Context, eventID uint64) (AutoAssignResult, error) {
	path := fmt.Sprintf("/v1/events/%d/auto-assign", eventID)
	var resp AutoAssignResult
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return AutoAssignResult{}, err
	}
	return resp, nil
}

// do runs one request with retries.  The request body is marshalled
// once and replayed on each attempt; mutating requests carry a single
// idempotency key across all attempts so a retry after a half-applied
// timeout cannot double-apply.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	idemKey := ""
	if method != http.MethodGet {
		idemKey = uuid.NewString()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff(attempt-1, c.retryBase, c.retryCap)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if idemKey != "" {
			req.Header.Set("Idempotency-Key", idemKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err = decodeBody(resp.Body, out)
			_ = resp.Body.Close()
			return err
		}
		serr := &StatusError{Code: resp.StatusCode, Message: errorMessage(resp.Body)}
		_ = resp.Body.Close()
		if !retryable(resp.StatusCode) {
			return serr
		}
		lastErr = serr
	}
	return fmt.Errorf("gateway unavailable after %d attempts: %w", c.maxAttempts, lastErr)
}

func decodeBody(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the {"error": "..."} body the gateway returns
// on failures.  Anything unparseable degrades to the raw body text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(raw))
}
