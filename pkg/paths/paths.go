// Package paths plans billboard announce, withdraw and community updates for
// a POP server from billboard's view of its peers and NetBox's address plan.
package paths

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/util"
)

// NetBox tags marking interface addresses.
const (
	TagCircuitIP      = "circuit-interface-ip"
	TagInterfaceLocal = "interface-local-ip"
)

// PathSource is the billboard side of the planner. *billboard.Runner
// implements it.
type PathSource interface {
	GetPeers(ctx context.Context, hostname string) ([]billboard.PeerRecord, error)
	GetPaths(ctx context.Context, q billboard.PathQuery) ([]billboard.PathRecord, error)
}

// Inventory is the NetBox side of the planner. *netbox.Client implements it.
type Inventory interface {
	Device(ctx context.Context, name string) (*netbox.Device, error)
	IPAddresses(ctx context.Context, q netbox.IPQuery) ([]netbox.IPAddress, error)
	Prefixes(ctx context.Context, q netbox.PrefixQuery) ([]netbox.Prefix, error)
}

// rangeRole maps a NetBox prefix role to the path type it announces.
type rangeRole struct {
	role     string
	family   int
	pathType billboard.PathType
	perSite  bool
}

var rangeRoles = []rangeRole{
	{"production-anycast-range", 4, billboard.PathProdGlobal, false},
	{"qos-anycast-range", 4, billboard.PathMonitor, false},
	{"ipv4-site-local-range", 4, billboard.PathSiteLocal, true},
	{"production-anycast-range", 6, billboard.PathProdGlobal, false},
	{"ipv6-site-local-range", 6, billboard.PathSiteLocal, true},
	{"ipv6-site-range", 6, billboard.PathSiteLocal, true},
}

// Planner builds billboard commands. It never executes them.
type Planner struct {
	Billboard PathSource
	NetBox    Inventory
}

// PeerPaths is what Announce found for one billboard peer.
type PeerPaths struct {
	Peer      billboard.PeerRecord
	Family    int
	Interface string
	Paths     []billboard.PathRecord
}

// ResolveSite returns the NetBox site slug of a device. When NetBox has no
// such device the site is taken from the hostname, sub-<site>-<role>.
func (p *Planner) ResolveSite(ctx context.Context, device string) (string, error) {
	dev, err := p.NetBox.Device(ctx, device)
	if err == nil && dev.Site.Slug != "" {
		return dev.Site.Slug, nil
	}
	if err != nil && !errors.Is(err, util.ErrNotFound) {
		return "", err
	}
	parts := strings.Split(device, "-")
	if len(parts) >= 3 {
		util.WithDevice(device).Warnf("not in NetBox, using site %q from hostname", parts[1])
		return parts[1], nil
	}
	return "", fmt.Errorf("cannot resolve site of %q: %w", device, util.ErrNotFound)
}

// Discover lists, for each billboard peer of device, the interface its
// circuit is on and every path NetBox says it should carry. Only the
// requested types are included.
func (p *Planner) Discover(ctx context.Context, device, site string, types []billboard.PathType) ([]PeerPaths, error) {
	log := util.WithFields(map[string]interface{}{"device": device, "operation": "path.discover"})

	peers, err := p.Billboard.GetPeers(ctx, device)
	if err != nil && !errors.Is(err, billboard.ErrNoOutput) {
		return nil, fmt.Errorf("billboard peers of %s: %w", device, err)
	}

	circuitIPs, err := p.NetBox.IPAddresses(ctx, netbox.IPQuery{Device: device, Tag: TagCircuitIP})
	if err != nil {
		return nil, fmt.Errorf("circuit addresses of %s: %w", device, err)
	}
	var localIPs []netbox.IPAddress
	if billboard.ContainsPathType(types, billboard.PathIntLocal) {
		localIPs, err = p.NetBox.IPAddresses(ctx, netbox.IPQuery{Device: device, Tag: TagInterfaceLocal})
		if err != nil {
			return nil, fmt.Errorf("interface-local addresses of %s: %w", device, err)
		}
	}
	ranges, err := p.ranges(ctx, site, types)
	if err != nil {
		return nil, err
	}

	out := make([]PeerPaths, 0, len(peers))
	for _, peer := range peers {
		pp := PeerPaths{Peer: peer, Family: util.IPFamily(peer.IP)}
		if pp.Family == 0 {
			log.Warnf("skipping peer %s: not an IP address", peer.IP)
			continue
		}
		for _, ip := range circuitIPs {
			if util.PrefixContains(ip.Address, peer.IP) {
				pp.Interface = ip.InterfaceName()
			}
		}
		if pp.Interface == "" {
			log.Debugf("peer %s matches no circuit address", peer.IP)
		}

		for _, ip := range localIPs {
			if pp.Interface == "" || ip.InterfaceName() != pp.Interface || util.IPFamily(ip.Address) != pp.Family {
				continue
			}
			cidr, err := util.NetworkCIDR(ip.Address)
			if err != nil {
				return nil, err
			}
			if err := pp.add(cidr, billboard.PathIntLocal); err != nil {
				return nil, err
			}
		}
		for _, r := range ranges[pp.Family] {
			if err := pp.add(r.cidr, r.pathType); err != nil {
				return nil, err
			}
		}
		out = append(out, pp)
	}
	return out, nil
}

func (pp *PeerPaths) add(cidr string, t billboard.PathType) error {
	rec, err := billboard.NewAnnouncement(cidr, t)
	if err != nil {
		return err
	}
	rec.Hostname = pp.Peer.Hostname
	rec.PeerName = pp.Peer.Name
	rec.ASN = pp.Peer.ASN
	rec.PeerIP = pp.Peer.IP
	pp.Paths = append(pp.Paths, rec)
	return nil
}

type typedRange struct {
	cidr     string
	pathType billboard.PathType
}

// ranges fetches the anycast and site ranges for the requested types, keyed
// by address family.
func (p *Planner) ranges(ctx context.Context, site string, types []billboard.PathType) (map[int][]typedRange, error) {
	out := make(map[int][]typedRange)
	for _, r := range rangeRoles {
		if !billboard.ContainsPathType(types, r.pathType) {
			continue
		}
		q := netbox.PrefixQuery{Role: r.role, Family: r.family}
		if r.perSite {
			q.Site = site
		}
		prefixes, err := p.NetBox.Prefixes(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("prefixes with role %s: %w", r.role, err)
		}
		for _, pfx := range prefixes {
			out[r.family] = append(out[r.family], typedRange{cidr: pfx.Prefix, pathType: r.pathType})
		}
	}
	return out, nil
}

// Announce returns an announce command for every path Discover finds.
func (p *Planner) Announce(ctx context.Context, device, site string, types []billboard.PathType) ([]billboard.Command, error) {
	peers, err := p.Discover(ctx, device, site, types)
	if err != nil {
		return nil, err
	}
	var cmds []billboard.Command
	for _, pp := range peers {
		for _, rec := range pp.Paths {
			cmds = append(cmds, billboard.FormatAnnounceCommand(device, pp.Peer.IP, rec))
		}
	}
	return cmds, nil
}

// Withdraw returns a withdraw command for every path of device whose type is
// in types. A device without paths yields no commands.
func (p *Planner) Withdraw(ctx context.Context, device string, types []billboard.PathType) ([]billboard.Command, error) {
	records, err := p.Billboard.GetPaths(ctx, billboard.PathQuery{Hostname: device})
	if errors.Is(err, billboard.ErrNoOutput) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("billboard paths of %s: %w", device, err)
	}

	var cmds []billboard.Command
	for _, rec := range records {
		t, err := billboard.ParsePathType(rec.PathType)
		if err != nil {
			util.WithDevice(device).Warnf("skipping path %s: %v", rec.CIDR(), err)
			continue
		}
		if rec.Hostname == device && billboard.ContainsPathType(types, t) {
			cmds = append(cmds, billboard.FormatWithdrawCommand(rec))
		}
	}
	return cmds, nil
}

// CommunityPathTypes are the path types AddCommunities updates.
var CommunityPathTypes = []billboard.PathType{billboard.PathProdGlobal, billboard.PathMonitor}

// AddCommunities merges tokens into the communities of every PROD_GLOBAL and
// MONITOR path between server and peerIP and returns the update commands.
// A type with no paths is ErrNoOutput.
func (p *Planner) AddCommunities(ctx context.Context, server, peerIP string, tokens billboard.CommunitySet) ([]billboard.Command, error) {
	var records []billboard.PathRecord
	for _, t := range CommunityPathTypes {
		recs, err := p.Billboard.GetPaths(ctx, billboard.PathQuery{Hostname: server, PeerIP: peerIP, Type: t})
		if err != nil {
			return nil, fmt.Errorf("%s paths %s -> %s: %w", t, server, peerIP, err)
		}
		records = append(records, recs...)
	}

	merged := billboard.MergeCommunities(records, tokens)
	cmds := make([]billboard.Command, 0, len(merged))
	for _, rec := range merged {
		cmds = append(cmds, billboard.FormatUpdateCommand(server, peerIP, rec))
	}
	return cmds, nil
}
