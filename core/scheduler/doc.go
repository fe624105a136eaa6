// Package scheduler runs the rolling-horizon loop of the storage dispatch.
//
// Each cycle snapshots forecasts and storage states from a StateStore, aligns
// the forecasts to the current hour, cancels the commands armed by the
// previous cycle, solves the dispatch problem and arms one timer per planned
// command. Commands go through the actuation executor when their timer fires
// and the plan is published as a schedule keyed by hour.
package scheduler
