package config

import (
	"fmt"

	"github.com/kilianp07/ess-scheduler/auth"
	"github.com/kilianp07/ess-scheduler/core/model"
)

// RTEConfig configures the day-ahead price feed. When enabled, the fetched
// prices replace the price forecast.
type RTEConfig struct {
	Enabled bool   `json:"enabled"`
	Client  string `json:"client"`
	BaseURL string `json:"base_url"`
	// RefreshCron schedules price fetches. Each fetch covers the 24 hours
	// following the next run, so running shortly before the hour keeps the
	// cycle at the top of the hour on fresh prices. Prices are also fetched
	// at startup.
	RefreshCron string `json:"refresh_cron"`

	Auth auth.Conf `json:"auth"`
}

// SetDefaults applies defaults to zero values.
func (c *RTEConfig) SetDefaults() {
	if c.Client == "" {
		c.Client = "wholesale_market"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "55 * * * *"
	}
}

// Validate checks the credentials of an enabled feed.
func (c RTEConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !c.Auth.Enabled() {
		return fmt.Errorf("%w: rte feed requires auth client_id, client_secret and auth_url", model.ErrConfig)
	}
	return nil
}
