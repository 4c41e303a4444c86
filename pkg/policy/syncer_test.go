package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/paths"
	"github.com/neteng-tools/popctl/pkg/util"
)

type fakeBillboard struct {
	peers map[string][]billboard.PeerRecord
	paths []billboard.PathRecord
}

func (f *fakeBillboard) GetPeers(_ context.Context, hostname string) ([]billboard.PeerRecord, error) {
	peers, ok := f.peers[hostname]
	if !ok {
		return nil, billboard.ErrNoOutput
	}
	return peers, nil
}

func (f *fakeBillboard) GetPaths(_ context.Context, q billboard.PathQuery) ([]billboard.PathRecord, error) {
	var out []billboard.PathRecord
	for _, p := range f.paths {
		if p.Hostname == q.Hostname {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, billboard.ErrNoOutput
	}
	return out, nil
}

type fakeNetBox struct {
	devices  map[string]netbox.Device
	sites    map[string]netbox.Site
	ips      map[string][]netbox.IPAddress // by tag
	prefixes map[netbox.PrefixQuery][]netbox.Prefix
	regionQ  []string
}

func (f *fakeNetBox) Device(_ context.Context, name string) (*netbox.Device, error) {
	d, ok := f.devices[name]
	if !ok {
		return nil, netbox.ErrNotFound
	}
	return &d, nil
}

func (f *fakeNetBox) IPAddresses(_ context.Context, q netbox.IPQuery) ([]netbox.IPAddress, error) {
	return f.ips[q.Tag], nil
}

func (f *fakeNetBox) Prefixes(_ context.Context, q netbox.PrefixQuery) ([]netbox.Prefix, error) {
	return f.prefixes[q], nil
}

func (f *fakeNetBox) Site(_ context.Context, slug string) (*netbox.Site, error) {
	s, ok := f.sites[slug]
	if !ok {
		return nil, netbox.ErrNotFound
	}
	return &s, nil
}

func (f *fakeNetBox) Sites(_ context.Context, region string) ([]netbox.Site, error) {
	f.regionQ = append(f.regionQ, region)
	var out []netbox.Site
	for _, s := range f.sites {
		if s.Region != nil && s.Region.Slug == region {
			out = append(out, s)
		}
	}
	return out, nil
}

func circuitIP(address, iface string) netbox.IPAddress {
	return netbox.IPAddress{Address: address, AssignedObject: &netbox.AssignedRef{Name: iface}}
}

func newSyncer(t *testing.T) (*Syncer, *fakeBillboard, *fakeNetBox) {
	t.Helper()
	europe := &netbox.Ref{Name: "Southern Europe", Slug: "europe"}
	bb := &fakeBillboard{
		peers: map[string][]billboard.PeerRecord{
			server:             {cogent},
			"sub-lis01-data01": {{Hostname: "sub-lis01-data01", Name: "sparkle", ASN: "6762", IP: "185.70.204.2"}},
		},
		paths: []billboard.PathRecord{
			{
				Hostname: server, PeerName: "cogent", ASN: "174", PeerIP: peerIP,
				Prefix: "143.131.181.0", PrefixLen: "24", PathType: "PROD_GLOBAL", PathState: "ENABLED",
				PrependAS: "0", Communities: billboard.NewCommunitySet("174:3000"),
			},
		},
	}
	nb := &fakeNetBox{
		devices: map[string]netbox.Device{server: {Name: server, Site: netbox.Ref{Slug: "mad01"}}},
		sites: map[string]netbox.Site{
			"mad01":        {Name: "MAD01", Slug: "mad01", Region: europe},
			"lis01":        {Name: "LIS01", Slug: "lis01", Region: europe},
			"mad01-office": {Name: "MAD01-OFFICE", Slug: "mad01-office", Region: europe},
		},
		ips: map[string][]netbox.IPAddress{
			paths.TagCircuitIP: {circuitIP("185.70.203.33/31", "ethernet0")},
		},
		prefixes: map[netbox.PrefixQuery][]netbox.Prefix{
			{Role: "production-anycast-range", Family: 4}: {{Prefix: "143.131.181.0/24"}, {Prefix: "143.131.182.0/24"}},
		},
	}
	return &Syncer{Policy: loadTestPolicy(t), Billboard: bb, NetBox: nb}, bb, nb
}

func planStrings(p Plan) []string {
	var out []string
	for _, c := range p.Commands() {
		out = append(out, c.String())
	}
	return out
}

func TestSyncer_ServerRegion(t *testing.T) {
	s, _, nb := newSyncer(t)
	ctx := context.Background()

	site, region, err := s.ServerRegion(ctx, server)
	if err != nil {
		t.Fatalf("ServerRegion: %v", err)
	}
	if site != "mad01" || region != "eu" {
		t.Errorf("ServerRegion = %q, %q, want mad01, eu", site, region)
	}

	delete(nb.sites, "mad01")
	_, region, err = s.ServerRegion(ctx, server)
	if err != nil || region != "" {
		t.Errorf("unknown site: region %q, err %v", region, err)
	}
}

func TestSyncer_SyncServer(t *testing.T) {
	s, _, _ := newSyncer(t)

	plan, err := s.SyncServer(context.Background(), server, Options{Types: []billboard.PathType{billboard.PathProdGlobal}})
	if err != nil {
		t.Fatalf("SyncServer: %v", err)
	}
	want := []string{
		`update path sub-mad01-data01 185.70.203.32 prefix=143.131.181.0 prefix_len=24 type=PROD_GLOBAL communities="174:3000,174:3102,174:990" prepend_as=2`,
		`announce sub-mad01-data01 185.70.203.32 prefix=143.131.182.0 prefix_len=24 type=prod_global state=disabled prepend_as=2 communities="174:3000,174:3102,174:990"`,
	}
	if diff := cmp.Diff(want, planStrings(plan)); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncer_SyncServerRegionOverride(t *testing.T) {
	s, _, _ := newSyncer(t)

	plan, err := s.SyncServer(context.Background(), server, Options{
		Types:  []billboard.PathType{billboard.PathProdGlobal},
		Region: "na",
	})
	if err != nil {
		t.Fatalf("SyncServer: %v", err)
	}
	if plan.Count(ActionUpdate) != 1 {
		t.Fatalf("got %d updates, want 1", plan.Count(ActionUpdate))
	}
	if got := plan.Changes[0].Path.Communities.String(); got != "174:3000,174:990" {
		t.Errorf("communities without the eu layer = %q", got)
	}
}

func TestSyncer_SyncServerMidgress(t *testing.T) {
	s, _, nb := newSyncer(t)
	nb.ips[TagMidgressOnly] = []netbox.IPAddress{circuitIP("185.70.203.33/31", "ethernet0")}

	plan, err := s.SyncServer(context.Background(), server, Options{Types: billboard.AllPathTypes})
	if err != nil {
		t.Fatalf("SyncServer: %v", err)
	}
	want := []string{"withdraw sub-mad01-data01 185.70.203.32 prefix=143.131.181.0 prefix_len=24"}
	if diff := cmp.Diff(want, planStrings(plan)); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncer_RegionServers(t *testing.T) {
	s, _, nb := newSyncer(t)

	servers, err := s.RegionServers(context.Background(), "eu", 174)
	if err != nil {
		t.Fatalf("RegionServers: %v", err)
	}
	if diff := cmp.Diff([]string{server}, servers); diff != "" {
		t.Errorf("servers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"europe"}, nb.regionQ); diff != "" {
		t.Errorf("region queries mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncer_SyncRegion(t *testing.T) {
	s, _, _ := newSyncer(t)
	ctx := context.Background()

	if _, err := s.SyncRegion(ctx, "eu", Options{Types: billboard.AllPathTypes}); !errors.Is(err, util.ErrValidationFailed) {
		t.Errorf("SyncRegion without ASN: err = %v, want validation error", err)
	}

	plan, err := s.SyncRegion(ctx, "eu", Options{ASN: 174, Types: []billboard.PathType{billboard.PathProdGlobal}})
	if err != nil {
		t.Fatalf("SyncRegion: %v", err)
	}
	if plan.Count(ActionUpdate) != 1 || plan.Count(ActionAnnounce) != 1 {
		t.Errorf("got %v", planStrings(plan))
	}
}
