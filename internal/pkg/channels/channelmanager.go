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

// cmAdapter talks to the channel-manager intermediary. It only pushes:
// blocked-booking CRUD plus run-length-encoded rate schedules. The channel
// manager fans availability out to the OTAs it fronts; reservations flow
// back through its own pull feed, configured as a separate mapping.
type cmAdapter struct {
	baseURL    string
	apiKey     string
	hotelCode  string
	httpClient *http.Client
}

// NewChannelManagerAdapterFromEnv builds the channel-manager adapter.
func NewChannelManagerAdapterFromEnv() Adapter {
	baseURL := strings.TrimRight(env.GetEnv("CM_API_URL", ""), "/")
	apiKey := strings.TrimSpace(env.GetEnv("CM_API_KEY", ""))
	if baseURL == "" || apiKey == "" {
		return newUnavailableAdapter(models.ProviderChannelManager)
	}
	return &cmAdapter{
		baseURL:   baseURL,
		apiKey:    apiKey,
		hotelCode: strings.TrimSpace(env.GetEnv("CM_HOTEL_CODE", "")),
		httpClient: &http.Client{
			Timeout: env.GetEnvDuration("CM_TIMEOUT", 8*time.Second),
		},
	}
}

func (a *cmAdapter) Provider() models.Provider {
	return models.ProviderChannelManager
}

func (a *cmAdapter) Capabilities() Capabilities {
	return Capabilities{CreateBooking: true, UpdateBooking: true, DeleteBooking: true, PushRates: true}
}

func (a *cmAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error) {
	return nil, ErrNotSupported
}

type cmBlock struct {
	ID       string `json:"id,omitempty"`
	RoomCode string `json:"room_code"`
	Ref      string `json:"ref"`
	Label    string `json:"label"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// CreateBooking pushes a blocked booking to the channel manager.
func (a *cmAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error) {
	body := cmBlock{
		RoomCode: mapping.ExternalResourceID,
		Ref:      OriginMarker + block.LocalUID,
		Label:    block.Summary,
		From:     block.Start.Format("2006-01-02"),
		To:       block.End.Format("2006-01-02"),
	}
	var created cmBlock
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/api/blocks", body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("channel manager returned no block id")
	}
	return created.ID, nil
}

// UpdateBooking rewrites a pushed block.
func (a *cmAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error {
	body := cmBlock{
		RoomCode: mapping.ExternalResourceID,
		Ref:      OriginMarker + block.LocalUID,
		Label:    block.Summary,
		From:     block.Start.Format("2006-01-02"),
		To:       block.End.Format("2006-01-02"),
	}
	return a.doJSON(ctx, http.MethodPut, a.baseURL+"/api/blocks/"+url.PathEscape(externalID), body, nil)
}

// DeleteBooking removes a pushed block; deleting an absent block succeeds.
func (a *cmAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	err := a.doJSON(ctx, http.MethodDelete, a.baseURL+"/api/blocks/"+url.PathEscape(externalID), nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		return nil
	}
	return err
}

type cmRateRange struct {
	RoomCode string `json:"room_code"`
	From     string `json:"from"`
	To       string `json:"to"`
	Price    int64  `json:"price_cents"`
	Currency string `json:"currency"`
	MinStay  int    `json:"min_stay"`
}

// PushRatePlan transmits one request per contiguous span; the exporter has
// already run-length encoded the schedule, so the request count stays
// bounded no matter how long the horizon is.
func (a *cmAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error {
	ranges := make([]cmRateRange, 0, len(spans))
	for _, s := range spans {
		ranges = append(ranges, cmRateRange{
			RoomCode: mapping.ExternalResourceID,
			From:     s.Start.Format("2006-01-02"),
			To:       s.End.Format("2006-01-02"),
			Price:    s.PriceCents,
			Currency: s.Currency,
			MinStay:  s.MinStay,
		})
	}
	return a.doJSON(ctx, http.MethodPut, a.baseURL+"/api/rates", ranges, nil)
}

func (a *cmAdapter) doJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
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
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if a.hotelCode != "" {
		req.Header.Set("X-Hotel-Code", a.hotelCode)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Transientf("channel manager request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, strings.TrimSpace(string(raw))); err != nil {
		return err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode channel manager response: %w", err)
		}
	}
	return nil
}
