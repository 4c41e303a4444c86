package ifcheck

import (
	"context"
	"fmt"

	"github.com/neteng-tools/popctl/pkg/netbox"
)

// Inventory is the NetBox side of interface discovery. *netbox.Client
// implements it.
type Inventory interface {
	Interfaces(ctx context.Context, device string) ([]netbox.Interface, error)
	CircuitTermination(ctx context.Context, interfaceID int) (*netbox.CircuitTermination, error)
	IPAddresses(ctx context.Context, q netbox.IPQuery) ([]netbox.IPAddress, error)
}

const circuitTag = "circuit-interface-ip"

// Collect builds interface slots for server from NetBox. Normally only
// interfaces with a circuit are returned; in diagnostic mode only those
// without one.
func Collect(ctx context.Context, nb Inventory, server string, diagnostic bool) ([]*Interface, error) {
	nbIfaces, err := nb.Interfaces(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("interfaces of %s: %w", server, err)
	}

	var out []*Interface
	for _, nbi := range nbIfaces {
		term, err := nb.CircuitTermination(ctx, nbi.ID)
		if err != nil {
			return nil, fmt.Errorf("circuit on %s: %w", nbi.Name, err)
		}

		switch {
		case term != nil && !diagnostic:
			iface := &Interface{
				Name:      nbi.Name,
				MAC:       nbi.MACAddress,
				CircuitID: term.Circuit.CID,
				Provider:  term.Circuit.Provider.Name,
				Status:    term.Circuit.Status.Label,
				Type:      CircuitTypeFromName(term.Circuit.Type.Name),
			}
			iface.IP, err = circuitIP(ctx, nb, server, nbi.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, iface)
		case term == nil && diagnostic:
			out = append(out, &Interface{Name: nbi.Name, MAC: nbi.MACAddress, Status: "Unconfigured"})
		}
	}
	return out, nil
}

func circuitIP(ctx context.Context, nb Inventory, server string, ifaceID int) (string, error) {
	ips, err := nb.IPAddresses(ctx, netbox.IPQuery{Device: server, InterfaceID: ifaceID, Family: 4})
	if err != nil {
		return "", fmt.Errorf("addresses of interface %d: %w", ifaceID, err)
	}
	for _, ip := range ips {
		if ip.HasTag(circuitTag) {
			return ip.Address, nil
		}
	}
	return "", nil
}

// Select returns the slots named in names, in that order. An unknown name is
// an error. Empty names selects everything.
func Select(ifaces []*Interface, names []string) ([]*Interface, error) {
	if len(names) == 0 {
		return ifaces, nil
	}
	byName := make(map[string]*Interface, len(ifaces))
	for _, i := range ifaces {
		byName[i.Name] = i
	}
	out := make([]*Interface, 0, len(names))
	for _, n := range names {
		i, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("interface %q not found", n)
		}
		out = append(out, i)
	}
	return out, nil
}
