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

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

const (
	otaMaxAttempts  = 3
	otaRetryBackoff = 500 * time.Millisecond
)

// otaAdapter talks to a generic REST OTA. When no credentials are
// configured it runs in mock mode: calls are logged and answered with
// canned success so development environments keep working.
type otaAdapter struct {
	baseURL    string
	apiKey     string
	mock       bool
	httpClient *http.Client
}

// NewOTAAdapterFromEnv builds the OTA adapter, falling into mock mode when
// unconfigured.
func NewOTAAdapterFromEnv() Adapter {
	baseURL := strings.TrimRight(env.GetEnv("OTA_API_URL", ""), "/")
	apiKey := strings.TrimSpace(env.GetEnv("OTA_API_KEY", ""))
	mock := baseURL == "" || apiKey == ""
	if mock {
		log.Info("[Channels] OTA credentials not configured, adapter runs in mock mode")
	}
	return &otaAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		mock:    mock,
		httpClient: &http.Client{
			Timeout: env.GetEnvDuration("OTA_TIMEOUT", 8*time.Second),
		},
	}
}

func (a *otaAdapter) Provider() models.Provider {
	return models.ProviderOTA
}

func (a *otaAdapter) Capabilities() Capabilities {
	return Capabilities{FetchEvents: true, CreateBooking: true, UpdateBooking: true, DeleteBooking: true, PushRates: true}
}

type otaBooking struct {
	ID        string `json:"id"`
	RoomRef   string `json:"room_ref"`
	GuestName string `json:"guest_name"`
	Notes     string `json:"notes"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Status    string `json:"status"`
}

// FetchEvents pulls the OTA's reservations for the mapped room.
func (a *otaAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error) {
	if a.mock {
		log.Infof("[Channels] OTA mock: fetch for mapping %d returns no events", mapping.ID)
		return &FetchResult{}, nil
	}

	q := url.Values{}
	q.Set("room_ref", mapping.ExternalResourceID)
	if !window.From.IsZero() {
		q.Set("from", window.From.Format("2006-01-02"))
	}
	if !window.To.IsZero() {
		q.Set("to", window.To.Format("2006-01-02"))
	}

	var bookings []otaBooking
	err := a.doJSON(ctx, http.MethodGet, a.baseURL+"/v1/bookings?"+q.Encode(), nil, &bookings)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{}
	for _, b := range bookings {
		checkIn, perr := time.Parse("2006-01-02", b.CheckIn)
		if perr != nil {
			continue
		}
		checkOut, perr := time.Parse("2006-01-02", b.CheckOut)
		if perr != nil {
			continue
		}
		result.Events = append(result.Events, ExternalEvent{
			UID:         b.ID,
			Summary:     b.GuestName,
			Description: b.Notes,
			Start:       checkIn,
			End:         checkOut,
			Cancelled:   strings.EqualFold(b.Status, "cancelled"),
			Tentative:   strings.EqualFold(b.Status, "pending"),
		})
	}
	return result, nil
}

// CreateBooking pushes a local booking to the OTA and returns its id.
func (a *otaAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error) {
	if a.mock {
		id := "mock-" + uuid.New().String()
		log.Infof("[Channels] OTA mock: create for mapping %d -> %s", mapping.ID, id)
		return id, nil
	}

	body := otaBooking{
		RoomRef:   mapping.ExternalResourceID,
		GuestName: block.Summary,
		Notes:     OriginMarker + block.LocalUID,
		CheckIn:   block.Start.Format("2006-01-02"),
		CheckOut:  block.End.Format("2006-01-02"),
		Status:    "confirmed",
	}
	var created otaBooking
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/v1/bookings", body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("ota create returned no booking id")
	}
	return created.ID, nil
}

// UpdateBooking rewrites a pushed booking.
func (a *otaAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error {
	if a.mock {
		log.Infof("[Channels] OTA mock: update %s for mapping %d", externalID, mapping.ID)
		return nil
	}

	body := otaBooking{
		RoomRef:   mapping.ExternalResourceID,
		GuestName: block.Summary,
		Notes:     OriginMarker + block.LocalUID,
		CheckIn:   block.Start.Format("2006-01-02"),
		CheckOut:  block.End.Format("2006-01-02"),
		Status:    "confirmed",
	}
	return a.doJSON(ctx, http.MethodPut, a.baseURL+"/v1/bookings/"+url.PathEscape(externalID), body, nil)
}

// DeleteBooking cancels a pushed booking; a 404 means the goal state holds.
func (a *otaAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	if a.mock {
		log.Infof("[Channels] OTA mock: delete %s for mapping %d", externalID, mapping.ID)
		return nil
	}

	err := a.doJSON(ctx, http.MethodDelete, a.baseURL+"/v1/bookings/"+url.PathEscape(externalID), nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		return nil
	}
	return err
}

type otaRateSpan struct {
	From       string `json:"from"`
	To         string `json:"to"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	MinStay    int    `json:"min_stay"`
}

// PushRatePlan transmits pre-compressed rate spans.
func (a *otaAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error {
	if a.mock {
		log.Infof("[Channels] OTA mock: rate push of %d spans for mapping %d", len(spans), mapping.ID)
		return nil
	}

	body := make([]otaRateSpan, 0, len(spans))
	for _, s := range spans {
		body = append(body, otaRateSpan{
			From:       s.Start.Format("2006-01-02"),
			To:         s.End.Format("2006-01-02"),
			PriceCents: s.PriceCents,
			Currency:   s.Currency,
			MinStay:    s.MinStay,
		})
	}
	endpoint := fmt.Sprintf("%s/v1/rooms/%s/rates", a.baseURL, url.PathEscape(mapping.ExternalResourceID))
	return a.doJSON(ctx, http.MethodPut, endpoint, body, nil)
}

// doJSON performs one JSON round trip with bounded retry on transient
// failures (429, 5xx, network errors).
func (a *otaAdapter) doJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= otaMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(otaRetryBackoff):
			}
		}

		lastErr = a.once(ctx, method, endpoint, raw, out)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		log.Warnf("[Channels] OTA call %s %s failed (attempt %d/%d): %v", method, endpoint, attempt, otaMaxAttempts, lastErr)
	}
	return lastErr
}

func (a *otaAdapter) once(ctx context.Context, method, endpoint string, raw []byte, out interface{}) error {
	var reader io.Reader
	if raw != nil {
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", a.apiKey)
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Transientf("ota request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, strings.TrimSpace(string(respBody))); err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode ota response: %w", err)
		}
	}
	return nil
}
