package ifcheck

import (
	"fmt"
	"strings"

	"github.com/neteng-tools/popctl/pkg/health"
)

// Thresholds. Errors and loss are bad when high, light when low.
const (
	ErrorsWarn = 0.0
	ErrorsCrit = 1.0
	LightWarn  = -9.0
	LightCrit  = -11.0
	LossCrit   = 0.1
)

// Evaluate grades a checked interface. In diagnostic mode only light levels
// are graded.
func Evaluate(iface *Interface, diagnostic bool) *health.Report {
	r := health.NewReport(iface.Name)

	if !diagnostic {
		r.Add(linkResult(iface))
	}
	r.Add(lightResult(iface))
	if diagnostic {
		return r
	}

	delta := iface.Delta()
	r.Add(counterResult("rx_errors", delta.RX, delta.RXTXValid))
	r.Add(counterResult("tx_errors", delta.TX, delta.RXTXValid))
	r.Add(counterResult("crc_errors", delta.CRC, delta.CRCValid))
	r.Add(lossResult(iface))
	return r
}

func linkResult(iface *Interface) health.Result {
	res := health.Result{Check: "link", Details: iface.State}
	switch iface.State {
	case "UP":
		res.Status, res.Message = health.StatusOK, "link up"
	case "DOWN":
		res.Status, res.Message = health.StatusCritical, "link down"
	default:
		res.Status, res.Message = health.StatusUnknown, "link state not read"
	}
	return res
}

func lightResult(iface *Interface) health.Result {
	res := health.Result{Check: "light", Details: iface.Light}
	if len(iface.Light) == 0 {
		res.Status, res.Message = health.StatusUnknown, "light level not read"
		return res
	}

	res.Status = health.StatusOK
	parts := make([]string, len(iface.Light))
	for i, l := range iface.Light {
		parts[i] = fmt.Sprintf("%.2f", l)
		s := health.Below(l, LightWarn, LightCrit)
		if l == NoLight {
			s = health.StatusCritical
		}
		res.Status = health.Worse(res.Status, s)
	}
	res.Message = strings.Join(parts, " / ") + " dBm"
	if iface.NoLight() {
		res.Message = "no light"
	}
	return res
}

func counterResult(check string, delta int64, valid bool) health.Result {
	res := health.Result{Check: check, Details: delta}
	if !valid {
		res.Status, res.Message = health.StatusUnknown, "counters not sampled"
		return res
	}
	res.Status = health.Above(float64(delta), ErrorsWarn, ErrorsCrit)
	res.Message = fmt.Sprintf("%d new", delta)
	return res
}

func lossResult(iface *Interface) health.Result {
	res := health.Result{Check: "packet_loss", Details: iface.PacketLoss}
	if !iface.LossMeasured {
		res.Status, res.Message = health.StatusUnknown, "packet loss not measured"
		return res
	}
	// Any loss worth reporting is critical.
	res.Status = health.Above(iface.PacketLoss, LossCrit, LossCrit)
	res.Message = fmt.Sprintf("%g%% to %s", iface.PacketLoss, iface.PingTarget)
	return res
}
