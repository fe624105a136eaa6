// Package storage formulates battery and ice thermal storage as rows of an
// optim.Problem. Each model owns its decision variables, including the
// per-hour mode binary, and exposes the terms it adds to building power.
package storage
