package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// caldavAdapter is the full-CRUD calendar-webhook provider. It keeps a
// push-notification subscription per mapping (expiring channel) and pulls
// incrementally with the provider's sync token.
type caldavAdapter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewCalDAVAdapterFromEnv builds the caldav adapter. Missing configuration
// yields the unavailable fallback instead of a half-working adapter.
func NewCalDAVAdapterFromEnv() Adapter {
	baseURL := strings.TrimRight(env.GetEnv("CALDAV_BASE_URL", ""), "/")
	token := strings.TrimSpace(env.GetEnv("CALDAV_API_TOKEN", ""))
	if baseURL == "" || token == "" {
		return newUnavailableAdapter(models.ProviderCalDAV)
	}
	return &caldavAdapter{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: env.GetEnvDuration("CALDAV_TIMEOUT", 8*time.Second),
		},
	}
}

func (a *caldavAdapter) Provider() models.Provider {
	return models.ProviderCalDAV
}

func (a *caldavAdapter) Capabilities() Capabilities {
	return Capabilities{FetchEvents: true, CreateBooking: true, UpdateBooking: true, DeleteBooking: true}
}

type caldavEvent struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
}

type caldavEventsResponse struct {
	Events        []caldavEvent `json:"events"`
	NextSyncToken string        `json:"nextSyncToken"`
}

// FetchEvents pulls the mapping's calendar. With a stored sync token only
// the delta since the last pull comes back; without one it is a full fetch
// bounded by the window.
func (a *caldavAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(mapping.ExternalResourceID))

	q := url.Values{}
	if mapping.SyncToken != "" {
		q.Set("syncToken", mapping.SyncToken)
	} else {
		if !window.From.IsZero() {
			q.Set("timeMin", window.From.Format(time.RFC3339))
		}
		if !window.To.IsZero() {
			q.Set("timeMax", window.To.Format(time.RFC3339))
		}
	}

	var payload caldavEventsResponse
	if err := a.doJSON(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil, &payload); err != nil {
		return nil, err
	}

	result := &FetchResult{NextSyncToken: payload.NextSyncToken}
	for _, ce := range payload.Events {
		start, err := time.Parse(time.RFC3339, ce.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, ce.End)
		if err != nil {
			continue
		}
		result.Events = append(result.Events, ExternalEvent{
			UID:         ce.ID,
			Summary:     ce.Summary,
			Description: ce.Description,
			Start:       start,
			End:         end,
			Cancelled:   strings.EqualFold(ce.Status, "cancelled"),
			Tentative:   strings.EqualFold(ce.Status, "tentative"),
		})
	}
	return result, nil
}

// CreateBooking writes a calendar object carrying the origin marker.
func (a *caldavAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(mapping.ExternalResourceID))
	body := map[string]string{
		"summary":     block.Summary,
		"description": OriginMarker + block.LocalUID,
		"start":       block.Start.Format(time.RFC3339),
		"end":         block.End.Format(time.RFC3339),
	}
	var created caldavEvent
	if err := a.doJSON(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("caldav create returned no event id")
	}
	return created.ID, nil
}

// UpdateBooking rewrites the remote calendar object in place.
func (a *caldavAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", a.baseURL,
		url.PathEscape(mapping.ExternalResourceID), url.PathEscape(externalID))
	body := map[string]string{
		"summary":     block.Summary,
		"description": OriginMarker + block.LocalUID,
		"start":       block.Start.Format(time.RFC3339),
		"end":         block.End.Format(time.RFC3339),
	}
	return a.doJSON(ctx, http.MethodPut, endpoint, body, nil)
}

// DeleteBooking removes the remote object. 404 counts as success: the goal
// state (no remote booking) already holds.
func (a *caldavAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", a.baseURL,
		url.PathEscape(mapping.ExternalResourceID), url.PathEscape(externalID))
	err := a.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		return nil
	}
	return err
}

func (a *caldavAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error {
	return ErrNotSupported
}

type caldavSubscription struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	ResourceID string `json:"resourceId"`
	Expiration string `json:"expiration"`
}

// Subscribe opens a push-notification channel for the mapping's calendar.
func (a *caldavAdapter) Subscribe(ctx context.Context, mapping *models.ChannelMapping) (*Subscription, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/watch", a.baseURL, url.PathEscape(mapping.ExternalResourceID))
	body := map[string]string{
		"address": strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/") + "/webhooks/calendar",
	}
	var sub caldavSubscription
	if err := a.doJSON(ctx, http.MethodPost, endpoint, body, &sub); err != nil {
		return nil, err
	}
	expiry, err := time.Parse(time.RFC3339, sub.Expiration)
	if err != nil {
		expiry = time.Now().Add(7 * 24 * time.Hour)
	}
	return &Subscription{ID: sub.ID, Token: sub.Token, ResourceID: sub.ResourceID, Expiry: expiry}, nil
}

// RenewSubscription replaces an expiring channel with a fresh one.
func (a *caldavAdapter) RenewSubscription(ctx context.Context, mapping *models.ChannelMapping) (*Subscription, error) {
	if mapping.SubscriptionID != "" {
		stop := fmt.Sprintf("%s/channels/%s/stop", a.baseURL, url.PathEscape(mapping.SubscriptionID))
		// Best effort: a dead channel expires on its own anyway.
		_ = a.doJSON(ctx, http.MethodPost, stop, nil, nil)
	}
	return a.Subscribe(ctx, mapping)
}

// doJSON performs one authenticated round trip with JSON in and out.
func (a *caldavAdapter) doJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Transientf("caldav request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, strings.TrimSpace(string(raw))); err != nil {
		return err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode caldav response: %w", err)
		}
	}
	return nil
}
