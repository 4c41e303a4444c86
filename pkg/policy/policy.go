// Package policy loads the BGP community policy files (global.yml,
// regional.yml and pops.yml) and plans the billboard changes that bring a
// server's paths in line with them.
package policy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neteng-tools/popctl/pkg/billboard"
)

// Policy file names inside the policy directory.
const (
	GlobalFile   = "global.yml"
	RegionalFile = "regional.yml"
	PoPsFile     = "pops.yml"
)

// RouteServerASN keys the route-server policy in global.yml. Peers with
// rs_policy set receive its communities.
const RouteServerASN = 0

// ASNConfig is the policy for one peer ASN in one layer.
type ASNConfig struct {
	Name        string   `yaml:"name"`
	VendorLink  string   `yaml:"vendor_link"`
	ASPrepend   int      `yaml:"as_prepend"`
	RSPolicy    bool     `yaml:"rs_policy"`
	RSExclude   []string `yaml:"rs_exclude"`
	Communities []string `yaml:"communities"`
}

// Policy holds the three layers. Regional is keyed by region code (eu,
// latam, na, apac), PoPs by server hostname.
type Policy struct {
	Global   map[int]ASNConfig
	Regional map[string]map[int]ASNConfig
	PoPs     map[string]map[int]ASNConfig
}

// Load reads the three policy files from dir.
func Load(dir string) (*Policy, error) {
	var data [3][]byte
	for i, name := range []string{GlobalFile, RegionalFile, PoPsFile} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		data[i] = b
	}
	return Parse(data[0], data[1], data[2])
}

// Parse decodes the contents of global.yml, regional.yml and pops.yml.
func Parse(global, regional, pops []byte) (*Policy, error) {
	var g struct {
		Global map[int]ASNConfig `yaml:"global"`
	}
	if err := yaml.Unmarshal(global, &g); err != nil {
		return nil, fmt.Errorf("policy %s: %w", GlobalFile, err)
	}
	var r struct {
		Regional map[string]map[int]ASNConfig `yaml:"regional"`
	}
	if err := yaml.Unmarshal(regional, &r); err != nil {
		return nil, fmt.Errorf("policy %s: %w", RegionalFile, err)
	}
	var p struct {
		PoPs map[string]map[int]ASNConfig `yaml:"pops"`
	}
	if err := yaml.Unmarshal(pops, &p); err != nil {
		return nil, fmt.Errorf("policy %s: %w", PoPsFile, err)
	}
	return &Policy{Global: g.Global, Regional: r.Regional, PoPs: p.PoPs}, nil
}

// FindDir returns neteng/policy under the root of the git checkout holding
// the working directory.
func FindDir(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("locating policy directory: git rev-parse: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return filepath.Join(strings.TrimSpace(stdout.String()), "neteng", "policy"), nil
}

// Resolved is the effective policy for one peer ASN on one server.
type Resolved struct {
	ASN         int
	Name        string
	Prepend     int
	RSPolicy    bool
	Communities billboard.CommunitySet
}

// Resolve merges the layers for asn on server in region. Communities are
// the union of the global, regional and pop entries, plus the route-server
// communities less every rs_exclude token when any layer sets rs_policy.
// Name and prepend come from the most specific layer that sets them.
func (p *Policy) Resolve(server, region string, asn int) Resolved {
	res := Resolved{ASN: asn, Communities: billboard.NewCommunitySet()}
	exclude := billboard.NewCommunitySet()

	for _, layer := range p.layers(server, region) {
		cfg, ok := layer[asn]
		if !ok {
			continue
		}
		res.Communities = res.Communities.Union(billboard.NewCommunitySet(cfg.Communities...))
		exclude = exclude.Union(billboard.NewCommunitySet(cfg.RSExclude...))
		if cfg.Name != "" {
			res.Name = cfg.Name
		}
		if cfg.ASPrepend != 0 {
			res.Prepend = cfg.ASPrepend
		}
		if cfg.RSPolicy {
			res.RSPolicy = true
		}
	}

	if res.RSPolicy {
		rs := billboard.NewCommunitySet(p.Global[RouteServerASN].Communities...)
		res.Communities = res.Communities.Union(rs.Difference(exclude))
	}
	return res
}

// layers returns the ASN maps that apply to server, least specific first.
func (p *Policy) layers(server, region string) []map[int]ASNConfig {
	return []map[int]ASNConfig{p.Global, p.Regional[region], p.PoPs[server]}
}

// Defines reports whether any layer has an entry for asn on server.
func (p *Policy) Defines(server, region string, asn int) bool {
	for _, layer := range p.layers(server, region) {
		if _, ok := layer[asn]; ok {
			return true
		}
	}
	return false
}

// ASNs lists, in ascending order, every ASN with an entry that applies to
// server. The route-server key is left out.
func (p *Policy) ASNs(server, region string) []int {
	seen := make(map[int]bool)
	for _, layer := range p.layers(server, region) {
		for asn := range layer {
			if asn != RouteServerASN {
				seen[asn] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for asn := range seen {
		out = append(out, asn)
	}
	sort.Ints(out)
	return out
}
