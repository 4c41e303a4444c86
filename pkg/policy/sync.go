package policy

import (
	"strconv"
	"strings"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/paths"
	"github.com/neteng-tools/popctl/pkg/util"
)

// Action is the kind of change Sync plans.
type Action string

const (
	ActionUpdate   Action = "update"
	ActionAnnounce Action = "announce"
	ActionWithdraw Action = "withdraw"
)

// States for new announcements.
const (
	StateEnabled  = "enabled"
	StateDisabled = "disabled"
)

// TagMidgressOnly marks interface addresses whose peers must carry no paths.
const TagMidgressOnly = "midgress-only"

// Change is one planned billboard command and the path it acts on. Path is
// the path as it will be after the command. For updates Added and Removed
// hold the community difference.
type Change struct {
	Action  Action
	Peer    billboard.PeerRecord
	Path    billboard.PathRecord
	Added   billboard.CommunitySet
	Removed billboard.CommunitySet
	Command billboard.Command
}

// Plan is the ordered result of a sync.
type Plan struct {
	Changes []Change
}

// Commands returns the billboard commands in plan order.
func (p Plan) Commands() []billboard.Command {
	cmds := make([]billboard.Command, len(p.Changes))
	for i, c := range p.Changes {
		cmds[i] = c.Command
	}
	return cmds
}

// Count returns the number of changes of one action.
func (p Plan) Count(a Action) int {
	n := 0
	for _, c := range p.Changes {
		if c.Action == a {
			n++
		}
	}
	return n
}

// SyncInput is what Sync compares for one server.
type SyncInput struct {
	Server string
	Region string
	Types  []billboard.PathType

	// ASN limits the sync to the peers of one ASN. 0 syncs every peer.
	ASN int

	// Undrained announces new PROD_GLOBAL paths enabled, unless every
	// PROD_GLOBAL path the server has is disabled.
	Undrained bool

	// Desired is the per-peer path assignment from paths.Planner.Discover.
	Desired []paths.PeerPaths
	Current []billboard.PathRecord

	// MidgressOnly holds the interface CIDRs tagged midgress-only.
	MidgressOnly []string
}

// Sync plans the commands that bring the server's billboard paths in line
// with the NetBox assignment and the community policy:
//
//   - update: a PROD_GLOBAL or MONITOR path whose communities differ from
//     policy, a SITE_LOCAL or INT_LOCAL path carrying any community, or a
//     path with the wrong AS prepend.
//   - withdraw: a path NetBox no longer assigns to the peer, and every path
//     of a peer on a midgress-only interface.
//   - announce: an assigned path billboard does not have.
//
// Stale detection needs an assignment: a peer and type with no assigned
// paths keeps what it has.
func (p *Policy) Sync(in SyncInput) Plan {
	current := indexPaths(in.Server, in.Current)
	drained := serverDrained(in.Server, in.Current)

	var plan Plan
	for _, pp := range in.Desired {
		asn, err := strconv.Atoi(pp.Peer.ASN)
		if err != nil {
			util.WithDevice(in.Server).Warnf("skipping peer %s: bad ASN %q", pp.Peer.IP, pp.Peer.ASN)
			continue
		}
		if in.ASN != 0 && asn != in.ASN {
			continue
		}

		res := p.Resolve(in.Server, in.Region, asn)
		midgress := containedIn(in.MidgressOnly, pp.Peer.IP)
		for _, t := range in.Types {
			sp := peerSync{
				server:   in.Server,
				peer:     pp,
				pathType: t,
				policy:   res,
				midgress: midgress,
				state:    announceState(t, in.Undrained, drained),
			}
			plan.Changes = append(plan.Changes, sp.plan(current[pp.Peer.IP][t])...)
		}
	}
	util.Debugf("policy sync %s: %d changes", in.Server, len(plan.Changes))
	return plan
}

type peerSync struct {
	server   string
	peer     paths.PeerPaths
	pathType billboard.PathType
	policy   Resolved
	midgress bool
	state    string
}

func (s peerSync) plan(existing []billboard.PathRecord) []Change {
	want := billboard.NewCommunitySet()
	if carriesCommunities(s.pathType) {
		want = s.policy.Communities
	}
	prepend := strconv.Itoa(s.policy.Prepend)

	assigned := make(map[string]bool)
	for _, rec := range s.peer.Paths {
		if rec.PathType == string(s.pathType) {
			assigned[rec.CIDR()] = true
		}
	}

	var changes []Change
	have := make(map[string]bool)
	for _, rec := range existing {
		have[rec.CIDR()] = true
		if s.midgress || (len(assigned) > 0 && !assigned[rec.CIDR()]) {
			changes = append(changes, Change{
				Action:  ActionWithdraw,
				Peer:    s.peer.Peer,
				Path:    rec,
				Removed: rec.Communities,
				Command: billboard.FormatWithdrawCommand(rec),
			})
			continue
		}
		if rec.Communities.Equal(want) && rec.PrependAS == prepend {
			continue
		}
		updated := rec
		updated.Communities = want
		updated.PrependAS = prepend
		changes = append(changes, Change{
			Action:  ActionUpdate,
			Peer:    s.peer.Peer,
			Path:    updated,
			Added:   want.Difference(rec.Communities),
			Removed: rec.Communities.Difference(want),
			Command: billboard.FormatUpdateCommand(s.server, s.peer.Peer.IP, updated).With("prepend_as=" + prepend),
		})
	}
	if s.midgress {
		return changes
	}

	for _, rec := range s.peer.Paths {
		if rec.PathType != string(s.pathType) || have[rec.CIDR()] {
			continue
		}
		have[rec.CIDR()] = true
		rec.Communities = want
		rec.PrependAS = prepend
		rec.PathState = strings.ToUpper(s.state)

		cmd := billboard.FormatAnnounceCommand(s.server, s.peer.Peer.IP, rec).
			With("state="+s.state, "prepend_as="+prepend)
		if want.Len() > 0 {
			cmd = cmd.With(`communities="` + want.String() + `"`)
		}
		changes = append(changes, Change{
			Action:  ActionAnnounce,
			Peer:    s.peer.Peer,
			Path:    rec,
			Added:   want,
			Command: cmd,
		})
	}
	return changes
}

// carriesCommunities reports whether paths of t are tagged. SITE_LOCAL and
// INT_LOCAL paths never carry communities.
func carriesCommunities(t billboard.PathType) bool {
	return t == billboard.PathProdGlobal || t == billboard.PathMonitor
}

// announceState picks the state of a new path. Only PROD_GLOBAL paths start
// disabled, and stay so on a drained server even when undrained is asked.
func announceState(t billboard.PathType, undrained, drained bool) string {
	if t != billboard.PathProdGlobal {
		return StateEnabled
	}
	if undrained && !drained {
		return StateEnabled
	}
	return StateDisabled
}

// indexPaths groups the server's paths by peer IP and canonical type.
func indexPaths(server string, records []billboard.PathRecord) map[string]map[billboard.PathType][]billboard.PathRecord {
	idx := make(map[string]map[billboard.PathType][]billboard.PathRecord)
	for _, rec := range records {
		if rec.Hostname != server {
			continue
		}
		t, err := billboard.ParsePathType(rec.PathType)
		if err != nil {
			util.WithDevice(server).Warnf("ignoring path %s: %v", rec.CIDR(), err)
			continue
		}
		if idx[rec.PeerIP] == nil {
			idx[rec.PeerIP] = make(map[billboard.PathType][]billboard.PathRecord)
		}
		idx[rec.PeerIP][t] = append(idx[rec.PeerIP][t], rec)
	}
	return idx
}

// serverDrained reports whether the server has PROD_GLOBAL paths and none of
// them is enabled.
func serverDrained(server string, records []billboard.PathRecord) bool {
	var prod int
	for _, rec := range records {
		if rec.Hostname != server || !strings.EqualFold(rec.PathType, string(billboard.PathProdGlobal)) {
			continue
		}
		prod++
		if strings.EqualFold(rec.PathState, "ENABLED") {
			return false
		}
	}
	return prod > 0
}

func containedIn(cidrs []string, ip string) bool {
	for _, c := range cidrs {
		if util.PrefixContains(c, ip) {
			return true
		}
	}
	return false
}
