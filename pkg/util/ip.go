package util

import (
	"fmt"

	"inet.af/netaddr"
)

// ParsePrefixes parses CIDR strings. Host bits are kept, so "10.0.0.1/31"
// stays as written; use Masked() on the result for the network.
func ParsePrefixes(cidrs []string) ([]netaddr.IPPrefix, error) {
	out := make([]netaddr.IPPrefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netaddr.ParseIPPrefix(c)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", c, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// PrefixContains reports whether ip falls inside the network of prefix.
// Unparseable input is never contained.
func PrefixContains(cidr, ip string) bool {
	p, err := netaddr.ParseIPPrefix(cidr)
	if err != nil {
		return false
	}
	addr, err := netaddr.ParseIP(ip)
	if err != nil {
		return false
	}
	return p.Masked().Contains(addr)
}

// NetworkCIDR returns the masked network of an interface address,
// "10.1.1.5/24" -> "10.1.1.0/24".
func NetworkCIDR(cidr string) (string, error) {
	p, err := netaddr.ParseIPPrefix(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	return p.Masked().String(), nil
}

// IPFamily returns 4 or 6, or 0 when s is neither an address nor a prefix.
func IPFamily(s string) int {
	ip, err := netaddr.ParseIP(s)
	if err != nil {
		p, perr := netaddr.ParseIPPrefix(s)
		if perr != nil {
			return 0
		}
		ip = p.IP()
	}
	if ip.Is4() {
		return 4
	}
	return 6
}

// ComputeNeighborIP returns the other end of a point-to-point link: the peer
// in a /31 (or /127), or the other host in a /30. Returns "" for anything
// else, including the network and broadcast addresses of a /30.
func ComputeNeighborIP(cidr string) string {
	p, err := netaddr.ParseIPPrefix(cidr)
	if err != nil {
		return ""
	}
	ip := p.IP()
	network := p.Masked()
	bits := ip.BitLen()

	switch int(p.Bits()) {
	case int(bits) - 1:
		if ip == network.IP() {
			return ip.Next().String()
		}
		return ip.Prior().String()
	case 30:
		if !ip.Is4() {
			return ""
		}
		r := network.Range()
		first := r.From().Next()
		last := r.To().Prior()
		switch ip {
		case first:
			return last.String()
		case last:
			return first.String()
		}
	}
	return ""
}
