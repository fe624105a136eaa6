package connectors

import (
	"context"
	"time"

	"github.com/kilianp07/ess-scheduler/auth"
)

// ErrIncompatibleOption is the format of the error returned when an option
// is applied to a client it does not belong to.
const ErrIncompatibleOption = "option %s is not compatible with connector %s"

// Option configures an RTEClient before a fetch.
type Option func(RTEClient) error

type RTEClient interface {
	Fetch(ctx context.Context, authClient *auth.ClientCred, opts ...Option) (RTEResponse, error)
}

// RTEResponse exposes the prices returned by an RTE data portal API.
type RTEResponse interface {
	Prices() ([]PricePoint, error)
}

// PricePoint is a wholesale price in currency per MWh starting at Start.
type PricePoint struct {
	Start time.Time
	End   time.Time
	Price float64
}
