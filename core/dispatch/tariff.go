package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/optim"
)

const daysPerMonth = 30

// peakVar is a demand peak variable together with the hours it bounds.
type peakVar struct {
	name  string
	id    optim.VarID
	hours []int
}

// addDemandCharge adds the peak variables, their rows and demand cost.
// grid returns the controllable terms of building power in hour i; load is
// the uncontrolled part.
func addDemandCharge(p *optim.Problem, tariff model.DemandRateSchedule, start time.Time, load []float64, grid func(int) []optim.Term) []peakVar {
	h := len(load)
	var peaks []peakVar
	switch tariff.Mode {
	case model.TariffTOU:
		for _, period := range tariff.Periods() {
			var hours []int
			for i := 0; i < h; i++ {
				if period.Window.Contains(start.Hour() + i) {
					hours = append(hours, i)
				}
			}
			if len(hours) == 0 {
				continue
			}
			id := p.Continuous(fmt.Sprintf("peak_%s", period.Name), 0, optim.Inf)
			p.Minimize(optim.T(id, period.Rate/daysPerMonth))
			peaks = append(peaks, peakVar{name: period.Name, id: id, hours: hours})
		}
	default:
		id := p.Continuous("peak", 0, optim.Inf)
		p.Minimize(optim.T(id, tariff.FlatRate/daysPerMonth))
		hours := make([]int, h)
		for i := range hours {
			hours[i] = i
		}
		peaks = append(peaks, peakVar{name: "peak", id: id, hours: hours})
	}

	// peak >= load[i] + grid(i)
	for _, pk := range peaks {
		for _, i := range pk.hours {
			terms := []optim.Term{optim.T(pk.id, 1)}
			for _, t := range grid(i) {
				terms = append(terms, optim.T(t.Var, -t.Coef))
			}
			p.AddRow(fmt.Sprintf("%s_bound[%d]", pk.name, i), optim.GE, load[i], terms...)
		}
	}
	return peaks
}
