package model

import (
	"fmt"
	"strings"
)

// SystemKind selects which storage models take part in the optimization.
type SystemKind int

const (
	SystemBattery SystemKind = iota
	SystemThermal
	SystemHybrid
)

// ParseSystemKind maps the energy_storage_system configuration value.
func ParseSystemKind(s string) (SystemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bess":
		return SystemBattery, nil
	case "tess":
		return SystemThermal, nil
	case "hybrid":
		return SystemHybrid, nil
	default:
		return 0, fmt.Errorf("%w: unknown energy storage system %q", ErrConfig, s)
	}
}

func (k SystemKind) String() string {
	switch k {
	case SystemBattery:
		return "bess"
	case SystemThermal:
		return "tess"
	case SystemHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// HasBattery reports whether the battery model is part of the system.
func (k SystemKind) HasBattery() bool { return k == SystemBattery || k == SystemHybrid }

// HasThermal reports whether the thermal model is part of the system.
func (k SystemKind) HasThermal() bool { return k == SystemThermal || k == SystemHybrid }

// Storages lists the storage kinds of the system in a stable order.
func (k SystemKind) Storages() []StorageKind {
	var out []StorageKind
	if k.HasBattery() {
		out = append(out, StorageBattery)
	}
	if k.HasThermal() {
		out = append(out, StorageThermal)
	}
	return out
}

// StorageKind identifies a single storage device.
type StorageKind string

const (
	StorageBattery StorageKind = "bess"
	StorageThermal StorageKind = "tess"
)

// Method selects how the scheduler turns a plan into commands.
type Method int

const (
	MethodControl Method = iota
	MethodSchedule
	MethodDirect
)

// ParseMethod maps the method configuration value.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "control":
		return MethodControl, nil
	case "schedule":
		return MethodSchedule, nil
	case "direct":
		return MethodDirect, nil
	default:
		return 0, fmt.Errorf("%w: unknown method %q", ErrConfig, s)
	}
}

func (m Method) String() string {
	switch m {
	case MethodControl:
		return "control"
	case MethodSchedule:
		return "schedule"
	case MethodDirect:
		return "direct"
	default:
		return "unknown"
	}
}
