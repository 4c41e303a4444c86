// Package ifcheck checks the physical health of a POP server's circuit
// interfaces over SSH: link state, optical light levels, packet loss to the
// far end, and CRC/RX/TX error counters.
package ifcheck

import (
	"strings"
)

// NoLight marks an optic that reports no receive power.
const NoLight = -99.0

// CircuitType is the short form of a NetBox circuit type.
type CircuitType string

const (
	Transit CircuitType = "Transit"
	IXP     CircuitType = "IXP"
	PNI     CircuitType = "PNI"
	Wave    CircuitType = "Wave"
)

// CircuitTypeFromName shortens a NetBox circuit type name such as
// "IP Transit" or "Private Interconnect". Unknown names pass through.
func CircuitTypeFromName(name string) CircuitType {
	switch {
	case strings.Contains(name, "Backbone"):
		return Wave
	case strings.Contains(name, "Private"):
		return PNI
	case strings.Contains(name, "IXP"):
		return IXP
	case strings.Contains(name, "IP Trans"):
		return Transit
	}
	return CircuitType(name)
}

// Counters is one sample of an interface's error counters.
type Counters struct {
	RX  int64 `json:"rx_errors"`
	TX  int64 `json:"tx_errors"`
	CRC int64 `json:"crc_errors"`

	RXTXValid bool `json:"-"`
	CRCValid  bool `json:"-"`
}

// Interface is the result slot for one interface. During a check run each
// slot is written by exactly one goroutine per stage.
type Interface struct {
	Name      string      `json:"name"`
	MAC       string      `json:"mac,omitempty"`
	CircuitID string      `json:"circuit_id,omitempty"`
	Provider  string      `json:"provider,omitempty"`
	Status    string      `json:"status,omitempty"`
	Type      CircuitType `json:"type,omitempty"`
	IP        string      `json:"ip,omitempty"`

	State string `json:"state,omitempty"`
	Speed string `json:"speed,omitempty"`

	// Light holds one value for 10G optics and one per lane for 100G.
	Light        []float64 `json:"light_dbm,omitempty"`
	PacketLoss   float64   `json:"packet_loss"`
	LossMeasured bool      `json:"loss_measured"`
	PingTarget   string    `json:"ping_target,omitempty"`

	Before Counters `json:"before"`
	After  Counters `json:"after"`

	RawLight string `json:"-"`
	RawLoss  string `json:"-"`

	// Errors collects stage failures; a failed stage leaves its fields
	// unset.
	Errors []string `json:"errors,omitempty"`
}

// Delta returns after minus before for each counter.
func (i *Interface) Delta() Counters {
	return Counters{
		RX:        i.After.RX - i.Before.RX,
		TX:        i.After.TX - i.Before.TX,
		CRC:       i.After.CRC - i.Before.CRC,
		RXTXValid: i.Before.RXTXValid && i.After.RXTXValid,
		CRCValid:  i.Before.CRCValid && i.After.CRCValid,
	}
}

// NoLight reports whether any lane has no light.
func (i *Interface) NoLight() bool {
	for _, l := range i.Light {
		if l == NoLight {
			return true
		}
	}
	return false
}
