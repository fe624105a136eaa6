package model

import "time"

// StorageState is the last known state of charge of a storage device along
// with the limits the guard enforces.
type StorageState struct {
	Kind      StorageKind
	SoC       float64 // percent
	MinSoC    float64
	MaxSoC    float64
	TargetSoC float64
	UpdatedAt time.Time
}

// Known reports whether a telemetry sample was ever accepted.
func (s StorageState) Known() bool { return !s.UpdatedAt.IsZero() }

// SoCSample is a single state of charge reading from telemetry.
type SoCSample struct {
	Kind StorageKind `json:"kind"`
	SoC  float64     `json:"soc"`
	At   time.Time   `json:"at"`
}
