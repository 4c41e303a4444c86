package billboard

import "sort"

// PathIndex groups CIDRs by peer IP, then by path type and path state:
//
//	index["185.70.203.32"]["PROD_GLOBAL"] = ["143.131.181.0/24", ...]
//	index["185.70.203.32"]["DISABLED"]    = ["143.131.181.0/24", ...]
type PathIndex map[string]map[string][]string

// SortPaths builds a PathIndex. CIDR lists are deduplicated and sorted.
func SortPaths(records []PathRecord) PathIndex {
	sets := make(map[string]map[string]map[string]bool)
	add := func(peer, key, cidr string) {
		if sets[peer] == nil {
			sets[peer] = make(map[string]map[string]bool)
		}
		if sets[peer][key] == nil {
			sets[peer][key] = make(map[string]bool)
		}
		sets[peer][key][cidr] = true
	}

	for _, rec := range records {
		cidr := rec.CIDR()
		add(rec.PeerIP, rec.PathType, cidr)
		add(rec.PeerIP, rec.PathState, cidr)
	}

	index := make(PathIndex, len(sets))
	for peer, byKey := range sets {
		index[peer] = make(map[string][]string, len(byKey))
		for key, cidrs := range byKey {
			list := make([]string, 0, len(cidrs))
			for c := range cidrs {
				list = append(list, c)
			}
			sort.Strings(list)
			index[peer][key] = list
		}
	}
	return index
}

// Peers returns the indexed peer IPs in sorted order.
func (idx PathIndex) Peers() []string {
	peers := make([]string, 0, len(idx))
	for p := range idx {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}
