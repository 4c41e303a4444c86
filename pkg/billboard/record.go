// Package billboard converts between the billboard CLI's tabular text output
// and typed path/peer records, and builds the command vectors billboard
// accepts for announce, update, withdraw and drain operations.
package billboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/neteng-tools/popctl/pkg/util"
)

// PathType is the billboard path category.
type PathType string

const (
	PathProdGlobal PathType = "PROD_GLOBAL"
	PathMonitor    PathType = "MONITOR"
	PathSiteLocal  PathType = "SITE_LOCAL"
	PathIntLocal   PathType = "INT_LOCAL"
)

// AllPathTypes lists every path type in the order billboard reports them.
var AllPathTypes = []PathType{PathProdGlobal, PathMonitor, PathSiteLocal, PathIntLocal}

// Arg returns the lowercase form used in command arguments (type=prod_global).
func (t PathType) Arg() string {
	return strings.ToLower(string(t))
}

// ParsePathType accepts either case ("prod_global" or "PROD_GLOBAL").
func ParsePathType(s string) (PathType, error) {
	t := PathType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllPathTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown path type %q", s)
}

// ParsePathTypes parses a comma-separated path type filter. "all" expands to
// every path type. Duplicates are dropped, first occurrence wins.
func ParsePathTypes(csv string) ([]PathType, error) {
	names := util.SplitCommaSeparated(csv)
	if len(names) == 0 {
		return nil, util.NewValidationError("at least one path type is required")
	}

	vb := &util.ValidationBuilder{}
	seen := make(map[PathType]bool)
	var types []PathType
	for _, name := range names {
		if strings.EqualFold(name, "all") {
			return append([]PathType(nil), AllPathTypes...), nil
		}
		t, err := ParsePathType(name)
		if err != nil {
			vb.AddErrorf("%v (valid: prod_global, monitor, site_local, int_local, all)", err)
			continue
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}
	return types, nil
}

// JoinPathTypes renders types as billboard's path_types= value.
func JoinPathTypes(types []PathType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.Arg()
	}
	return strings.Join(parts, ",")
}

// ContainsPathType reports whether t is in types.
func ContainsPathType(types []PathType, t PathType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// CommunitySet is an unordered set of community tokens such as "0:60294".
type CommunitySet map[string]struct{}

// NewCommunitySet builds a set from tokens. Empty tokens are ignored.
func NewCommunitySet(tokens ...string) CommunitySet {
	s := make(CommunitySet, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			s[tok] = struct{}{}
		}
	}
	return s
}

// ParseCommunityList parses a user supplied list like "0:9299, 0:6939".
func ParseCommunityList(csv string) CommunitySet {
	return NewCommunitySet(util.SplitCommaSeparated(csv)...)
}

// Has reports whether tok is in the set.
func (s CommunitySet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Len returns the number of tokens.
func (s CommunitySet) Len() int {
	return len(s)
}

// Union returns a new set holding the tokens of s and other. Neither operand
// is modified.
func (s CommunitySet) Union(other CommunitySet) CommunitySet {
	out := make(CommunitySet, len(s)+len(other))
	for tok := range s {
		out[tok] = struct{}{}
	}
	for tok := range other {
		out[tok] = struct{}{}
	}
	return out
}

// Difference returns the tokens of s that are not in other.
func (s CommunitySet) Difference(other CommunitySet) CommunitySet {
	out := make(CommunitySet)
	for tok := range s {
		if !other.Has(tok) {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Equal is set equality.
func (s CommunitySet) Equal(other CommunitySet) bool {
	if len(s) != len(other) {
		return false
	}
	for tok := range s {
		if !other.Has(tok) {
			return false
		}
	}
	return true
}

// Sorted returns the tokens in lexical order.
func (s CommunitySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// String renders the comma-joined form billboard expects in communities="...".
func (s CommunitySet) String() string {
	return strings.Join(s.Sorted(), ",")
}

// MarshalJSON encodes the set as a sorted array.
func (s CommunitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of tokens.
func (s *CommunitySet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	*s = NewCommunitySet(tokens...)
	return nil
}

// PathRecord is one row of `billboard get path` output.
type PathRecord struct {
	Hostname    string       `json:"hostname"`
	PeerName    string       `json:"peer_name"`
	ASN         string       `json:"asn"`
	PeerIP      string       `json:"peer_ip"`
	Prefix      string       `json:"prefix"`
	PrefixLen   string       `json:"prefix_len"`
	PathType    string       `json:"path_type"`
	PathState   string       `json:"path_state"`
	PrependAS   string       `json:"prepended_as"`
	Communities CommunitySet `json:"communities"`
}

// PathKey identifies a path for matching and merging.
type PathKey struct {
	Hostname  string
	PeerIP    string
	Prefix    string
	PrefixLen string
	PathType  string
}

// Key returns the record's identity tuple.
func (r PathRecord) Key() PathKey {
	return PathKey{
		Hostname:  r.Hostname,
		PeerIP:    r.PeerIP,
		Prefix:    r.Prefix,
		PrefixLen: r.PrefixLen,
		PathType:  r.PathType,
	}
}

// CIDR joins prefix and length exactly as received.
func (r PathRecord) CIDR() string {
	return r.Prefix + "/" + r.PrefixLen
}

// NewAnnouncement builds a record for an announce command from a combined
// CIDR string. The address and length are split on "/" and not validated.
// The type keeps its canonical upper-case form so the record's Key matches
// the same path parsed from get path output.
func NewAnnouncement(cidr string, pathType PathType) (PathRecord, error) {
	prefix, length, ok := strings.Cut(cidr, "/")
	if !ok || prefix == "" || length == "" {
		return PathRecord{}, fmt.Errorf("invalid CIDR %q: expected <prefix>/<length>", cidr)
	}
	return PathRecord{
		Prefix:    prefix,
		PrefixLen: length,
		PathType:  string(pathType),
	}, nil
}

// PeerRecord is one row of `billboard get peer` output.
type PeerRecord struct {
	Hostname    string `json:"hostname"`
	Name        string `json:"name"`
	ASN         string `json:"asn"`
	IP          string `json:"ip"`
	Type        string `json:"type"`
	State       string `json:"state"`
	MaxPrefix   string `json:"max_prefix"`
	FilterRegex string `json:"filter_regex"`
}
