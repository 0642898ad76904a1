package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// httpQuoter delegates pricing to an external rating service.
type httpQuoter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQuoter returns the HTTP quoter when QUOTE_API_URL is configured and
// the rate-plan backed quoter otherwise.
func NewQuoter(rates repository.RateRepository) Quoter {
	baseURL := env.GetEnv("QUOTE_API_URL", "")
	if baseURL == "" {
		log.Info("[Quote] no pricing service configured, using local rate plans")
		return NewLocalQuoter(rates)
	}
	return &httpQuoter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  env.GetEnv("QUOTE_API_KEY", ""),
		client:  &http.Client{Timeout: env.GetEnvDuration("QUOTE_API_TIMEOUT", 5*time.Second)},
	}
}

func (q *httpQuoter) QuoteStay(ctx context.Context, stay Stay) (*Quote, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(stay)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/v1/quote", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &quote, nil
}
