// Package peers plans billboard peer drains for the circuits on selected
// interfaces of a POP server.
package peers

import (
	"context"
	"fmt"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/util"
)

const tagCircuitIP = "circuit-interface-ip"

// PeerSource lists billboard peers. *billboard.Runner implements it.
type PeerSource interface {
	GetPeers(ctx context.Context, hostname string) ([]billboard.PeerRecord, error)
}

// AddressSource lists NetBox addresses. *netbox.Client implements it.
type AddressSource interface {
	IPAddresses(ctx context.Context, q netbox.IPQuery) ([]netbox.IPAddress, error)
}

// Selection picks interfaces by name. Exactly one of Include and Exclude
// must be set.
type Selection struct {
	Include []string
	Exclude []string
}

// Validate checks that exactly one list is given.
func (s Selection) Validate() error {
	if (len(s.Include) == 0) == (len(s.Exclude) == 0) {
		return util.NewPreconditionError("peer selection", "interfaces",
			"exactly one of include or exclude", fmt.Sprintf("include=%v exclude=%v", s.Include, s.Exclude))
	}
	return nil
}

// Planner builds peer drain commands. It never executes them.
type Planner struct {
	Billboard PeerSource
	NetBox    AddressSource
}

// CircuitAddresses returns the circuit addresses on the selected interfaces
// of server.
func (p *Planner) CircuitAddresses(ctx context.Context, server string, sel Selection) ([]netbox.IPAddress, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	q := netbox.IPQuery{Device: server, Tag: tagCircuitIP, Interfaces: sel.Include}
	ips, err := p.NetBox.IPAddresses(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("circuit addresses of %s: %w", server, err)
	}
	if len(sel.Exclude) == 0 {
		return ips, nil
	}

	var kept []netbox.IPAddress
	for _, ip := range ips {
		name := ip.InterfaceName()
		if name != "" && !util.ContainsFold(sel.Exclude, name) {
			kept = append(kept, ip)
		}
	}
	return kept, nil
}

// Plan returns one drain or undrain command per billboard peer whose address
// falls inside a selected circuit. IPv6 peers only carry PROD_GLOBAL, so they
// are limited to it and skipped when it is not requested.
func (p *Planner) Plan(ctx context.Context, server string, sel Selection, action billboard.Action, types []billboard.PathType) ([]billboard.Command, error) {
	if len(types) == 0 {
		return nil, util.NewValidationError("at least one path type is required")
	}
	ips, err := p.CircuitAddresses(ctx, server, sel)
	if err != nil {
		return nil, err
	}
	peers, err := p.Billboard.GetPeers(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("billboard peers of %s: %w", server, err)
	}

	log := util.WithFields(map[string]interface{}{"device": server, "operation": "peer." + string(action)})
	var cmds []billboard.Command
	seen := make(map[string]bool)
	for _, peer := range peers {
		if seen[peer.IP] || !inAny(ips, peer.IP) {
			continue
		}
		seen[peer.IP] = true

		peerTypes := types
		if util.IPFamily(peer.IP) == 6 {
			if !billboard.ContainsPathType(types, billboard.PathProdGlobal) {
				log.Debugf("skipping IPv6 peer %s: only prod_global applies", peer.IP)
				continue
			}
			peerTypes = []billboard.PathType{billboard.PathProdGlobal}
		}
		cmds = append(cmds, billboard.FormatPeerCommand(action, server, peer.IP, peerTypes))
	}
	return cmds, nil
}

func inAny(ips []netbox.IPAddress, peerIP string) bool {
	for _, ip := range ips {
		if util.PrefixContains(ip.Address, peerIP) {
			return true
		}
	}
	return false
}

// Agent returns the whole-agent drain or undrain command.
func Agent(server string, action billboard.Action, types []billboard.PathType) billboard.Command {
	return billboard.FormatAgentCommand(action, server, types)
}
