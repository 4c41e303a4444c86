package billboard

import (
	"strings"
)

// Command is a billboard argument vector without the binary name. Tokens are
// in display form: communities="a,b" keeps its quotes so String() can be
// pasted into a shell.
type Command []string

// String joins the tokens with spaces.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// Argv returns the tokens as a shell would pass them: key="value" becomes
// key=value.
func (c Command) Argv() []string {
	argv := make([]string, len(c))
	for i, tok := range c {
		argv[i] = unquoteValue(tok)
	}
	return argv
}

// With returns a copy of c with tokens appended.
func (c Command) With(tokens ...string) Command {
	out := make(Command, 0, len(c)+len(tokens))
	out = append(out, c...)
	return append(out, tokens...)
}

func unquoteValue(tok string) string {
	key, val, ok := strings.Cut(tok, "=")
	if !ok || len(val) < 2 || val[0] != '"' || val[len(val)-1] != '"' {
		return tok
	}
	return key + "=" + val[1:len(val)-1]
}

// Action is a drain-style verb.
type Action string

const (
	ActionDrain   Action = "drain"
	ActionUndrain Action = "undrain"
)

// MergeCommunities returns copies of records whose community sets are the
// union of their own and tokens. The input slice and its sets are unchanged.
func MergeCommunities(records []PathRecord, tokens CommunitySet) []PathRecord {
	out := make([]PathRecord, len(records))
	for i, rec := range records {
		rec.Communities = rec.Communities.Union(tokens)
		out[i] = rec
	}
	return out
}

// FormatAnnounceCommand builds
// announce <device> <peer_ip> prefix=<p> prefix_len=<n> type=<t>. The type
// is lowercased, the form announce takes.
func FormatAnnounceCommand(device, peerIP string, rec PathRecord) Command {
	return Command{
		"announce",
		device,
		peerIP,
		"prefix=" + rec.Prefix,
		"prefix_len=" + rec.PrefixLen,
		"type=" + strings.ToLower(rec.PathType),
	}
}

// FormatUpdateCommand builds the update path command carrying the record's
// communities. An empty set renders as communities="".
func FormatUpdateCommand(device, peerIP string, rec PathRecord) Command {
	return Command{
		"update",
		"path",
		device,
		peerIP,
		"prefix=" + rec.Prefix,
		"prefix_len=" + rec.PrefixLen,
		"type=" + rec.PathType,
		`communities="` + rec.Communities.String() + `"`,
	}
}

// FormatWithdrawCommand builds withdraw from the record's own hostname and
// peer. Withdraw takes no type.
func FormatWithdrawCommand(rec PathRecord) Command {
	return Command{
		"withdraw",
		rec.Hostname,
		rec.PeerIP,
		"prefix=" + rec.Prefix,
		"prefix_len=" + rec.PrefixLen,
	}
}

// PathQuery filters `get path`. Empty fields are omitted.
type PathQuery struct {
	Hostname string
	PeerIP   string
	Type     PathType
}

// FormatGetPathCommand builds get path hostname=<h> [ip=<ip>] [type=<t>].
func FormatGetPathCommand(q PathQuery) Command {
	cmd := Command{"get", "path", "hostname=" + q.Hostname}
	if q.PeerIP != "" {
		cmd = append(cmd, "ip="+q.PeerIP)
	}
	if q.Type != "" {
		cmd = append(cmd, "type="+q.Type.Arg())
	}
	return cmd
}

// FormatGetPeerCommand builds get peer hostname=<h>.
func FormatGetPeerCommand(hostname string) Command {
	return Command{"get", "peer", "hostname=" + hostname}
}

// FormatAgentCommand builds drain|undrain agent <server> path_types=<types>.
func FormatAgentCommand(action Action, server string, types []PathType) Command {
	return Command{string(action), "agent", server, "path_types=" + JoinPathTypes(types)}
}

// FormatPeerCommand builds drain|undrain peer <server> <ip> path_types=<types>.
func FormatPeerCommand(action Action, server, peerIP string, types []PathType) Command {
	return Command{string(action), "peer", server, peerIP, "path_types=" + JoinPathTypes(types)}
}
