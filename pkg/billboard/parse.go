package billboard

import (
	"strings"
)

const (
	pathFixedColumns = 9
	peerFixedColumns = 7
)

// ParsePaths parses `billboard get path` output:
//
//	Hostname          PeerName   AS    PeerIP         Prefix         Len  Type         State     PrependAS  Communities
//	sub-eze01-data01  tisparkle  6762  185.70.203.32  143.131.181.0  24   PROD_GLOBAL  DISABLED  0          [0:100 0:200]
//
// The first line is a header. Blank lines are skipped. A data line with fewer
// than nine fields is a *MalformedRecordError.
func ParsePaths(raw string) ([]PathRecord, error) {
	records := []PathRecord{}
	err := eachDataLine(raw, pathFixedColumns, func(f []string) {
		records = append(records, PathRecord{
			Hostname:    f[0],
			PeerName:    f[1],
			ASN:         f[2],
			PeerIP:      f[3],
			Prefix:      f[4],
			PrefixLen:   f[5],
			PathType:    f[6],
			PathState:   f[7],
			PrependAS:   f[8],
			Communities: NewCommunitySet(bracketTokens(f[9:])...),
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParsePeers parses `billboard get peer` output:
//
//	Hostname          Name    AS   IP                   Type        State    MaxPrefix  FilterASRegex
//	sub-mxp01-data01  cogent  174  2001:978:2:2a::61:1  IPT_GLOBAL  ENABLED  0          []
func ParsePeers(raw string) ([]PeerRecord, error) {
	peers := []PeerRecord{}
	err := eachDataLine(raw, peerFixedColumns, func(f []string) {
		peers = append(peers, PeerRecord{
			Hostname:    f[0],
			Name:        f[1],
			ASN:         f[2],
			IP:          f[3],
			Type:        f[4],
			State:       f[5],
			MaxPrefix:   f[6],
			FilterRegex: strings.Join(bracketTokens(f[7:]), " "),
		})
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}

func eachDataLine(raw string, minFields int, fn func(fields []string)) error {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minFields {
			return &MalformedRecordError{
				Line:   i + 1,
				Text:   strings.TrimSpace(line),
				Fields: len(fields),
				Want:   minFields,
			}
		}
		fn(fields)
	}
	return nil
}

// bracketTokens rejoins a "[a b c]" list that strings.Fields split apart and
// returns its members.
func bracketTokens(fields []string) []string {
	joined := strings.Join(fields, " ")
	return strings.Fields(strings.Trim(joined, "[]"))
}
