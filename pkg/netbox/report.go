package netbox

import (
	"context"
	"errors"
	"fmt"
)

// RoleAdvertisementRange is the prefix role whose prefixes must each hold
// exactly one address.
const RoleAdvertisementRange = "ipv4-advertisement-range"

// PrefixFinding is a prefix that does not hold exactly one address.
type PrefixFinding struct {
	Prefix    Prefix
	Addresses []IPAddress
}

// Empty reports whether the prefix has no address at all.
func (f PrefixFinding) Empty() bool {
	return len(f.Addresses) == 0
}

// AuditPrefixes returns every prefix of role that holds no address or more
// than one.
func (c *Client) AuditPrefixes(ctx context.Context, role string) ([]PrefixFinding, error) {
	prefixes, err := c.Prefixes(ctx, PrefixQuery{Role: role})
	if err != nil {
		return nil, fmt.Errorf("prefixes with role %s: %w", role, err)
	}
	var findings []PrefixFinding
	for _, pfx := range prefixes {
		ips, err := c.IPAddresses(ctx, IPQuery{Parent: pfx.Prefix})
		if err != nil {
			return nil, fmt.Errorf("addresses in %s: %w", pfx.Prefix, err)
		}
		if len(ips) != 1 {
			findings = append(findings, PrefixFinding{Prefix: pfx, Addresses: ips})
		}
	}
	return findings, nil
}

// InterfaceReport is one server interface with its circuit, if any, and
// the addresses assigned to it.
type InterfaceReport struct {
	Interface Interface
	Circuit   *Circuit
	Addresses []IPAddress
}

// ServerInterfaces describes every interface of a server. The circuit is
// the full record, so description and custom fields are set.
func (c *Client) ServerInterfaces(ctx context.Context, server string) (*Device, []InterfaceReport, error) {
	dev, err := c.Device(ctx, server)
	if err != nil {
		return nil, nil, err
	}
	ifaces, err := c.Interfaces(ctx, server)
	if err != nil {
		return nil, nil, fmt.Errorf("interfaces of %s: %w", server, err)
	}

	reports := make([]InterfaceReport, 0, len(ifaces))
	for _, iface := range ifaces {
		rep := InterfaceReport{Interface: iface}
		term, err := c.CircuitTermination(ctx, iface.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("circuit of %s: %w", iface.Name, err)
		}
		if term != nil {
			circuit, err := c.Circuit(ctx, term.Circuit.ID)
			switch {
			case errors.Is(err, ErrNotFound):
				circuit = &term.Circuit
			case err != nil:
				return nil, nil, err
			}
			rep.Circuit = circuit
		}
		rep.Addresses, err = c.IPAddresses(ctx, IPQuery{InterfaceID: iface.ID})
		if err != nil {
			return nil, nil, fmt.Errorf("addresses of %s: %w", iface.Name, err)
		}
		reports = append(reports, rep)
	}
	return dev, reports, nil
}
