package wholesalemarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/ess-scheduler/auth"
	"github.com/kilianp07/ess-scheduler/connectors"
)

// DefaultBaseURL is the RTE wholesale market endpoint.
const DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	startDate time.Time
	endDate   time.Time
}

// Fetch retrieves the wholesale market data for the specified date range.
// Exactly two options, the start and end dates, must be provided.
func (w *Client) Fetch(ctx context.Context, authClient *auth.ClientCred, opts ...connectors.Option) (connectors.RTEResponse, error) {
	if len(opts) != 2 {
		return nil, fmt.Errorf("missing options: %d are set", len(opts))
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	base := w.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := w.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	q := url.Values{}
	q.Set("start_date", w.startDate.Format(time.RFC3339))
	q.Set("end_date", w.endDate.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if authClient != nil {
		if err := authClient.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var marketResponse Response
	if err := json.NewDecoder(resp.Body).Decode(&marketResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &marketResponse, nil
}
