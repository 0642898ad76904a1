package channels

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// icalAdapter is the pull-only calendar-feed provider: it can only GET and
// parse a published ics document. No booking CRUD, no rate pushes.
type icalAdapter struct {
	httpClient *http.Client
}

// NewICalAdapter creates the ical feed adapter.
func NewICalAdapter() Adapter {
	return &icalAdapter{
		httpClient: &http.Client{
			Timeout: env.GetEnvDuration("ICAL_FETCH_TIMEOUT", 8*time.Second),
		},
	}
}

func (a *icalAdapter) Provider() models.Provider {
	return models.ProviderICal
}

func (a *icalAdapter) Capabilities() Capabilities {
	return Capabilities{FetchEvents: true}
}

// FetchEvents downloads the mapping's feed URL and parses it into
// provider-neutral events. Events outside the window are dropped; events
// the parser cannot make sense of are skipped, not fatal.
func (a *icalAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error) {
	feedURL := strings.TrimSpace(mapping.FeedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("mapping %d has no feed url: %w", mapping.ID, ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, Transientf("ical fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, "ical feed")
	}

	cal, err := ics.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ical feed: %w", err)
	}

	var events []ExternalEvent
	for _, vevent := range cal.Events() {
		ev, perr := parseVEvent(vevent)
		if perr != nil {
			log.Warnf("[Channels] Skipping unparseable event in feed for mapping %d: %v", mapping.ID, perr)
			continue
		}
		if !window.From.IsZero() && ev.End.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && ev.Start.After(window.To) {
			continue
		}
		events = append(events, ev)
	}

	return &FetchResult{Events: events}, nil
}

// parseVEvent converts one VEVENT into the neutral shape. DTSTART/DTEND may
// be date-times or all-day dates.
func parseVEvent(vevent *ics.VEvent) (ExternalEvent, error) {
	uid := vevent.Id()
	if strings.TrimSpace(uid) == "" {
		return ExternalEvent{}, fmt.Errorf("event has no UID")
	}

	start, err := vevent.GetStartAt()
	if err != nil {
		start, err = vevent.GetAllDayStartAt()
		if err != nil {
			return ExternalEvent{}, fmt.Errorf("event %s has no usable DTSTART: %w", uid, err)
		}
	}
	end, err := vevent.GetEndAt()
	if err != nil {
		end, err = vevent.GetAllDayEndAt()
		if err != nil {
			// Single-day events without DTEND occupy one night.
			end = start.AddDate(0, 0, 1)
		}
	}

	ev := ExternalEvent{
		UID:   uid,
		Start: start,
		End:   end,
	}
	if p := vevent.GetProperty(ics.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := vevent.GetProperty(ics.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := vevent.GetProperty(ics.ComponentPropertyStatus); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "CANCELLED":
			ev.Cancelled = true
		case "TENTATIVE":
			ev.Tentative = true
		}
	}
	return ev, nil
}

func (a *icalAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error) {
	return "", ErrNotSupported
}

func (a *icalAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error {
	return ErrNotSupported
}

func (a *icalAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	return ErrNotSupported
}

func (a *icalAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error {
	return ErrNotSupported
}
