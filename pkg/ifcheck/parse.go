package ifcheck

import (
	"regexp"
	"strconv"
	"strings"

	"inet.af/netaddr"
)

var (
	linkModeRe = regexp.MustCompile(`(\w+) mode`)
	dBmRe      = regexp.MustCompile(`(-?\d+\.\d+)\s*dBm`)
	lossRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	crcRe      = regexp.MustCompile(`rx_crc_errors:\s*(\d+)`)
	briefIPv4  = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+)/\d+`)
)

// ParseLinkState reads the operational state word before "mode" in
// `ip -s link show`. ok is false when the output has none.
func ParseLinkState(out string) (state string, ok bool) {
	m := linkModeRe.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	if m[1] == "UP" {
		return "UP", true
	}
	return "DOWN", true
}

// ParseSpeed maps `ethtool` speed output to "10G" or "100G".
func ParseSpeed(out string) string {
	if strings.Contains(out, "10000Mb/s") {
		return "10G"
	}
	return "100G"
}

// ParseLight extracts receive power in dBm from `ethtool -m`. 10G optics
// report one value, 100G optics one per lane. Output without a reading
// yields a single NoLight.
func ParseLight(out, speed string) []float64 {
	var levels []float64
	for _, m := range dBmRe.FindAllStringSubmatch(out, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		levels = append(levels, v)
		if speed == "10G" {
			break
		}
	}
	if len(levels) == 0 {
		return []float64{NoLight}
	}
	return levels
}

// ParseLoss extracts the packet loss percentage from ping output.
func ParseLoss(out string) (float64, bool) {
	m := lossRe.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCRC reads rx_crc_errors from `ethtool -S`.
func ParseCRC(out string) (int64, bool) {
	m := crcRe.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	return v, err == nil
}

// ParseRXTX reads the RX and TX error columns from
// `ip -s link show <if> | grep "RX\|TX" -A 1`:
//
//	RX: bytes  packets  errors  dropped missed  mcast
//	123        456      0       0       0       0
//	TX: bytes  packets  errors  dropped carrier collsns
//	789        1011     0       0       0       0
func ParseRXTX(out string) (rx, tx int64, ok bool) {
	f := strings.Fields(out)
	if len(f) <= 25 {
		return 0, 0, false
	}
	rx, err := strconv.ParseInt(f[9], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	tx, err = strconv.ParseInt(f[22], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return rx, tx, true
}

// ParseBriefIPv4 returns the first IPv4 address in `ip -br a` output.
func ParseBriefIPv4(out string) string {
	m := briefIPv4.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

// HostAddress strips the length from an interface CIDR.
func HostAddress(cidr string) string {
	p, err := netaddr.ParseIPPrefix(cidr)
	if err != nil {
		return ""
	}
	return p.IP().String()
}
