package connectors

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/auth"
)

// PriceClientOptions builds the options of a client for the range
// [start, end).
type PriceClientOptions func(start, end time.Time) []Option

// PriceFeed turns wholesale prices into a clock hour indexed price forecast.
type PriceFeed struct {
	client  RTEClient
	auth    *auth.ClientCred
	options PriceClientOptions
	loc     *time.Location
}

// NewPriceFeed returns a feed reading prices from client. A nil loc uses
// time.Local.
func NewPriceFeed(client RTEClient, authClient *auth.ClientCred, options PriceClientOptions, loc *time.Location) *PriceFeed {
	if loc == nil {
		loc = time.Local
	}
	return &PriceFeed{client: client, auth: authClient, options: options, loc: loc}
}

// DayAhead returns 24 prices per kWh for the local day containing day,
// indexed by clock hour. Hours without a published price are NaN so that
// the forecast aligner can fill them.
func (f *PriceFeed) DayAhead(ctx context.Context, day time.Time) ([]float64, error) {
	day = day.In(f.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, f.loc)
	end := start.AddDate(0, 0, 1)
	resp, err := f.client.Fetch(ctx, f.auth, f.options(start, end)...)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	points, err := resp.Prices()
	if err != nil {
		return nil, err
	}
	return HourlyPerKWh(points, start, f.loc), nil
}

// HourlyPerKWh averages the points starting in each clock hour of the day
// beginning at start and converts them from per MWh to per kWh.
func HourlyPerKWh(points []PricePoint, start time.Time, loc *time.Location) []float64 {
	sum := make([]float64, 24)
	n := make([]int, 24)
	end := start.AddDate(0, 0, 1)
	for _, p := range points {
		if p.Start.Before(start) || !p.Start.Before(end) {
			continue
		}
		h := p.Start.In(loc).Hour()
		sum[h] += p.Price
		n[h]++
	}
	out := make([]float64, 24)
	for h := range out {
		if n[h] == 0 {
			out[h] = math.NaN()
			continue
		}
		out[h] = sum[h] / float64(n[h]) / 1000
	}
	return out
}

// Upcoming merges two days of clock hour prices into the next 24 hours
// starting at fromHour: hours from fromHour on come from today, earlier
// hours from tomorrow. Missing tomorrow values keep today's price.
func Upcoming(today, tomorrow []float64, fromHour int) []float64 {
	out := make([]float64, len(today))
	copy(out, today)
	for h := 0; h < fromHour && h < len(out); h++ {
		if h < len(tomorrow) && !math.IsNaN(tomorrow[h]) {
			out[h] = tomorrow[h]
		}
	}
	return out
}
