package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/paths"
	"github.com/neteng-tools/popctl/pkg/util"
)

// Inventory is the NetBox side of a sync. *netbox.Client implements it.
type Inventory interface {
	paths.Inventory
	Site(ctx context.Context, slug string) (*netbox.Site, error)
	Sites(ctx context.Context, region string) ([]netbox.Site, error)
}

// Syncer gathers the inputs of Policy.Sync from billboard and NetBox.
type Syncer struct {
	Policy    *Policy
	Billboard paths.PathSource
	NetBox    Inventory
}

// Options select what a sync covers.
type Options struct {
	Types     []billboard.PathType
	ASN       int
	Undrained bool

	// Region overrides the region looked up from the server's site.
	Region string
}

func (s *Syncer) planner() *paths.Planner {
	return &paths.Planner{Billboard: s.Billboard, NetBox: s.NetBox}
}

// ServerRegion returns the site slug of server and the policy code of the
// site's region. A site NetBox does not know, or one without a region,
// yields an empty region and only the global and pop layers apply.
func (s *Syncer) ServerRegion(ctx context.Context, server string) (site, region string, err error) {
	site, err = s.planner().ResolveSite(ctx, server)
	if err != nil {
		return "", "", err
	}
	st, err := s.NetBox.Site(ctx, site)
	if errors.Is(err, util.ErrNotFound) {
		util.WithDevice(server).Warnf("site %s not in NetBox, skipping regional policy", site)
		return site, "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("site %s: %w", site, err)
	}
	if st.Region == nil {
		util.WithDevice(server).Warnf("site %s has no region, skipping regional policy", site)
		return site, "", nil
	}
	return site, RegionCode(st.Region.Name), nil
}

// SyncServer plans the policy sync of one server.
func (s *Syncer) SyncServer(ctx context.Context, server string, opts Options) (Plan, error) {
	site, region, err := s.ServerRegion(ctx, server)
	if err != nil {
		return Plan{}, err
	}
	if opts.Region != "" {
		region = opts.Region
	}
	log := util.WithOperation("policy.sync").WithField("device", server)
	log.Debugf("site %s, region %q", site, region)

	desired, err := s.planner().Discover(ctx, server, site, opts.Types)
	if err != nil {
		return Plan{}, err
	}
	current, err := s.Billboard.GetPaths(ctx, billboard.PathQuery{Hostname: server})
	if err != nil && !errors.Is(err, billboard.ErrNoOutput) {
		return Plan{}, fmt.Errorf("billboard paths of %s: %w", server, err)
	}
	midgress, err := s.NetBox.IPAddresses(ctx, netbox.IPQuery{Device: server, Tag: TagMidgressOnly})
	if err != nil {
		return Plan{}, fmt.Errorf("midgress-only addresses of %s: %w", server, err)
	}
	cidrs := make([]string, 0, len(midgress))
	for _, ip := range midgress {
		cidrs = append(cidrs, ip.Address)
	}

	return s.Policy.Sync(SyncInput{
		Server:       server,
		Region:       region,
		Types:        opts.Types,
		ASN:          opts.ASN,
		Undrained:    opts.Undrained,
		Desired:      desired,
		Current:      current,
		MidgressOnly: cidrs,
	}), nil
}

// RegionServers lists the POP servers of a region that have a billboard
// peer in asn. Servers billboard does not know are skipped.
func (s *Syncer) RegionServers(ctx context.Context, region string, asn int) ([]string, error) {
	sites, err := s.NetBox.Sites(ctx, RegionSlug(region))
	if err != nil {
		return nil, fmt.Errorf("sites of %s: %w", region, err)
	}
	want := strconv.Itoa(asn)
	var servers []string
	for _, site := range sites {
		server := SiteServer(site.Name)
		if server == "" {
			continue
		}
		peers, err := s.Billboard.GetPeers(ctx, server)
		if errors.Is(err, billboard.ErrNoOutput) {
			util.WithDevice(server).Debugf("no billboard peers")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("billboard peers of %s: %w", server, err)
		}
		for _, p := range peers {
			if p.ASN == want {
				servers = append(servers, server)
				break
			}
		}
	}
	sort.Strings(servers)
	return servers, nil
}

// SyncRegion plans the sync of opts.ASN on every server of region that
// peers with it.
func (s *Syncer) SyncRegion(ctx context.Context, region string, opts Options) (Plan, error) {
	if opts.ASN == 0 {
		return Plan{}, util.NewValidationError("a regional sync needs an ASN")
	}
	servers, err := s.RegionServers(ctx, region, opts.ASN)
	if err != nil {
		return Plan{}, err
	}
	opts.Region = region

	var plan Plan
	for _, server := range servers {
		p, err := s.SyncServer(ctx, server, opts)
		if err != nil {
			return Plan{}, fmt.Errorf("%s: %w", server, err)
		}
		plan.Changes = append(plan.Changes, p.Changes...)
	}
	return plan, nil
}
