package factory

import (
	"fmt"
	"time"

	"github.com/kilianp07/ess-scheduler/connectors"
	wholesalemarket "github.com/kilianp07/ess-scheduler/connectors/clients/wholesaleMarket"
)

const (
	IDWholesaleMarket = "wholesale_market"
)

var (
	errUnknownClient = "unknown connector id: %s"
)

// NewRTEClient returns the client registered under id. baseURL overrides
// the default endpoint when set.
func NewRTEClient(id, baseURL string) (connectors.RTEClient, error) {
	switch id {
	case IDWholesaleMarket:
		return &wholesalemarket.Client{BaseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf(errUnknownClient, id)
	}
}

// PriceOptions returns the builder of the date range options of client id.
func PriceOptions(id string) (connectors.PriceClientOptions, error) {
	switch id {
	case IDWholesaleMarket:
		return func(start, end time.Time) []connectors.Option {
			return []connectors.Option{wholesalemarket.WithStartDate(start), wholesalemarket.WithEndDate(end)}
		}, nil
	default:
		return nil, fmt.Errorf(errUnknownClient, id)
	}
}
