package billboard

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleRecord() PathRecord {
	return PathRecord{
		Hostname:    "rtr1",
		PeerName:    "peerA",
		ASN:         "174",
		PeerIP:      "192.0.2.1",
		Prefix:      "203.0.113.0",
		PrefixLen:   "24",
		PathType:    "PROD_GLOBAL",
		PathState:   "ENABLED",
		PrependAS:   "0",
		Communities: NewCommunitySet("0:100"),
	}
}

func TestMergeAndFormatUpdate(t *testing.T) {
	records, err := ParsePaths(pathHeader + "rtr1 peerA 174 192.0.2.1 203.0.113.0 24 PROD_GLOBAL ENABLED 0 [0:100]\n")
	if err != nil {
		t.Fatal(err)
	}

	merged := MergeCommunities(records, NewCommunitySet("0:200"))
	if !merged[0].Communities.Equal(NewCommunitySet("0:100", "0:200")) {
		t.Errorf("merged = %v", merged[0].Communities.Sorted())
	}

	cmd := FormatUpdateCommand("rtr1", "192.0.2.1", merged[0])
	want := Command{
		"update", "path", "rtr1", "192.0.2.1",
		"prefix=203.0.113.0", "prefix_len=24", "type=PROD_GLOBAL",
		`communities="0:100,0:200"`,
	}
	if diff := cmp.Diff(want, cmd); diff != "" {
		t.Errorf("update command mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCommunities_Properties(t *testing.T) {
	records := []PathRecord{sampleRecord(), sampleRecord()}
	records[1].Communities = NewCommunitySet()

	t.Run("empty merge is identity", func(t *testing.T) {
		got := MergeCommunities(records, NewCommunitySet())
		for i := range records {
			if !got[i].Communities.Equal(records[i].Communities) {
				t.Errorf("record %d: %v, want %v", i, got[i].Communities, records[i].Communities)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		tokens := NewCommunitySet("0:200", "0:100")
		once := MergeCommunities(records, tokens)
		twice := MergeCommunities(once, tokens)
		for i := range once {
			if !once[i].Communities.Equal(twice[i].Communities) {
				t.Errorf("record %d: once %v, twice %v", i, once[i].Communities, twice[i].Communities)
			}
		}
	})

	t.Run("inputs unchanged", func(t *testing.T) {
		tokens := NewCommunitySet("0:300")
		_ = MergeCommunities(records, tokens)
		if records[0].Communities.Has("0:300") || records[1].Communities.Len() != 0 {
			t.Error("MergeCommunities modified its input")
		}
		if tokens.Len() != 1 {
			t.Error("MergeCommunities modified the token set")
		}
	})

	t.Run("nil communities", func(t *testing.T) {
		rec := sampleRecord()
		rec.Communities = nil
		got := MergeCommunities([]PathRecord{rec}, NewCommunitySet("0:1"))
		if got[0].Communities.String() != "0:1" {
			t.Errorf("communities = %q", got[0].Communities.String())
		}
	})
}

func TestFormatAnnounceCommand(t *testing.T) {
	rec, err := NewAnnouncement("143.131.181.0/24", PathMonitor)
	if err != nil {
		t.Fatal(err)
	}
	cmd := FormatAnnounceCommand("sub-eze01-data01", "185.70.203.32", rec)
	want := Command{"announce", "sub-eze01-data01", "185.70.203.32", "prefix=143.131.181.0", "prefix_len=24", "type=monitor"}
	if diff := cmp.Diff(want, cmd); diff != "" {
		t.Errorf("announce mismatch (-want +got):\n%s", diff)
	}

	parsed := FormatAnnounceCommand("rtr1", "192.0.2.1", sampleRecord())
	if got := parsed[len(parsed)-1]; got != "type=prod_global" {
		t.Errorf("type token from a parsed record = %q, want type=prod_global", got)
	}
}

func TestCommand_With(t *testing.T) {
	base := FormatWithdrawCommand(sampleRecord())
	got := base.With("state=enabled", `communities="0:1,0:2"`)
	if n := len(base); n != 5 {
		t.Errorf("With modified its receiver: %v", base)
	}
	want := `withdraw rtr1 192.0.2.1 prefix=203.0.113.0 prefix_len=24 state=enabled communities="0:1,0:2"`
	if got.String() != want {
		t.Errorf("String = %q, want %q", got.String(), want)
	}
	if argv := got.Argv(); argv[len(argv)-1] != "communities=0:1,0:2" {
		t.Errorf("Argv last = %q", argv[len(argv)-1])
	}
}

func TestTypeTokenPresence(t *testing.T) {
	rec := sampleRecord()
	hasType := func(c Command) bool {
		for _, tok := range c {
			if strings.HasPrefix(tok, "type=") {
				return true
			}
		}
		return false
	}
	if !hasType(FormatAnnounceCommand("rtr1", "192.0.2.1", rec)) {
		t.Error("announce must carry type=")
	}
	if hasType(FormatWithdrawCommand(rec)) {
		t.Error("withdraw must not carry type=")
	}
}

func TestFormatWithdrawCommand(t *testing.T) {
	cmd := FormatWithdrawCommand(sampleRecord())
	want := "withdraw rtr1 192.0.2.1 prefix=203.0.113.0 prefix_len=24"
	if cmd.String() != want {
		t.Errorf("withdraw = %q, want %q", cmd.String(), want)
	}
}

func TestFormatUpdateCommand_EmptyCommunities(t *testing.T) {
	rec := sampleRecord()
	rec.Communities = NewCommunitySet()
	cmd := FormatUpdateCommand("rtr1", "192.0.2.1", rec)
	if last := cmd[len(cmd)-1]; last != `communities=""` {
		t.Errorf("last token = %q", last)
	}
}

func TestCommand_Argv(t *testing.T) {
	rec := sampleRecord()
	rec.Communities = NewCommunitySet("0:1", "0:2")
	argv := FormatUpdateCommand("rtr1", "192.0.2.1", rec).Argv()
	if last := argv[len(argv)-1]; last != "communities=0:1,0:2" {
		t.Errorf("Argv last = %q, want unquoted", last)
	}
	if argv[4] != "prefix=203.0.113.0" {
		t.Errorf("Argv[4] = %q", argv[4])
	}
}

func TestQueryAndDrainCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"get path host", FormatGetPathCommand(PathQuery{Hostname: "rtr1"}), "get path hostname=rtr1"},
		{"get path full", FormatGetPathCommand(PathQuery{Hostname: "rtr1", PeerIP: "192.0.2.1", Type: PathMonitor}), "get path hostname=rtr1 ip=192.0.2.1 type=monitor"},
		{"get peer", FormatGetPeerCommand("rtr1"), "get peer hostname=rtr1"},
		{"agent drain", FormatAgentCommand(ActionDrain, "rtr1", []PathType{PathProdGlobal, PathMonitor}), "drain agent rtr1 path_types=prod_global,monitor"},
		{"peer undrain", FormatPeerCommand(ActionUndrain, "rtr1", "192.0.2.1", AllPathTypes), "undrain peer rtr1 192.0.2.1 path_types=prod_global,monitor,site_local,int_local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommand_OperationAndTarget(t *testing.T) {
	rec := sampleRecord()
	tests := []struct {
		cmd       Command
		operation string
		target    string
		query     bool
	}{
		{FormatAnnounceCommand("rtr1", "192.0.2.1", rec), "path.announce", "rtr1", false},
		{FormatWithdrawCommand(rec), "path.withdraw", "rtr1", false},
		{FormatUpdateCommand("rtr2", "192.0.2.1", rec), "path.update", "rtr2", false},
		{FormatGetPathCommand(PathQuery{Hostname: "rtr3"}), "path.get", "rtr3", true},
		{FormatAgentCommand(ActionDrain, "rtr4", AllPathTypes), "agent.drain", "rtr4", false},
		{FormatPeerCommand(ActionUndrain, "rtr5", "192.0.2.1", AllPathTypes), "peer.undrain", "rtr5", false},
	}
	for _, tt := range tests {
		if got := tt.cmd.Operation(); got != tt.operation {
			t.Errorf("%q Operation = %q, want %q", tt.cmd, got, tt.operation)
		}
		if got := tt.cmd.Target(); got != tt.target {
			t.Errorf("%q Target = %q, want %q", tt.cmd, got, tt.target)
		}
		if got := tt.cmd.IsQuery(); got != tt.query {
			t.Errorf("%q IsQuery = %v, want %v", tt.cmd, got, tt.query)
		}
	}
}

func TestSortPaths(t *testing.T) {
	raw := pathHeader +
		"rtr1 a 1 192.0.2.1 203.0.113.0 24 PROD_GLOBAL ENABLED 0 []\n" +
		"rtr1 a 1 192.0.2.1 198.51.100.0 24 PROD_GLOBAL DISABLED 0 []\n" +
		"rtr1 a 1 192.0.2.1 198.51.100.0 24 PROD_GLOBAL DISABLED 0 []\n" +
		"rtr1 b 2 192.0.2.9 203.0.113.0 25 MONITOR ENABLED 0 []\n"
	records, err := ParsePaths(raw)
	if err != nil {
		t.Fatal(err)
	}

	idx := SortPaths(records)
	if diff := cmp.Diff([]string{"192.0.2.1", "192.0.2.9"}, idx.Peers()); diff != "" {
		t.Errorf("Peers mismatch (-want +got):\n%s", diff)
	}
	want := map[string][]string{
		"PROD_GLOBAL": {"198.51.100.0/24", "203.0.113.0/24"},
		"ENABLED":     {"203.0.113.0/24"},
		"DISABLED":    {"198.51.100.0/24"},
	}
	if diff := cmp.Diff(want, idx["192.0.2.1"]); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}
