// Package forecast aligns hourly forecast vectors to the current hour of a
// scheduling cycle. Vectors are indexed by clock hour; Align fills missing
// values and rotates them so that index 0 is the current hour.
package forecast
