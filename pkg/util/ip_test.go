package util

import "testing"

func TestComputeNeighborIP(t *testing.T) {
	tests := []struct {
		cidr string
		want string
	}{
		{"10.1.0.0/31", "10.1.0.1"},
		{"10.1.0.1/31", "10.1.0.0"},
		{"10.1.0.1/30", "10.1.0.2"},
		{"10.1.0.2/30", "10.1.0.1"},
		{"10.1.0.0/30", ""},
		{"10.1.0.3/30", ""},
		{"2001:db8::/127", "2001:db8::1"},
		{"2001:db8::1/127", "2001:db8::"},
		{"10.1.0.5/24", ""},
		{"bogus", ""},
	}
	for _, tt := range tests {
		if got := ComputeNeighborIP(tt.cidr); got != tt.want {
			t.Errorf("ComputeNeighborIP(%q) = %q, want %q", tt.cidr, got, tt.want)
		}
	}
}

func TestPrefixContains(t *testing.T) {
	tests := []struct {
		cidr, ip string
		want     bool
	}{
		{"185.70.203.33/31", "185.70.203.32", true},
		{"185.70.203.33/31", "185.70.203.34", false},
		{"2001:978:2:2a::61:2/126", "2001:978:2:2a::61:1", true},
		{"10.0.0.0/8", "2001:db8::1", false},
		{"bogus", "10.0.0.1", false},
		{"10.0.0.0/8", "bogus", false},
	}
	for _, tt := range tests {
		if got := PrefixContains(tt.cidr, tt.ip); got != tt.want {
			t.Errorf("PrefixContains(%q, %q) = %v, want %v", tt.cidr, tt.ip, got, tt.want)
		}
	}
}

func TestNetworkCIDR(t *testing.T) {
	got, err := NetworkCIDR("143.131.181.7/24")
	if err != nil {
		t.Fatal(err)
	}
	if got != "143.131.181.0/24" {
		t.Errorf("NetworkCIDR = %q, want %q", got, "143.131.181.0/24")
	}
	if _, err := NetworkCIDR("nope"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestIPFamily(t *testing.T) {
	tests := map[string]int{
		"10.0.0.1":      4,
		"10.0.0.0/24":   4,
		"2001:db8::1":   6,
		"2001:db8::/64": 6,
		"junk":          0,
	}
	for in, want := range tests {
		if got := IPFamily(in); got != want {
			t.Errorf("IPFamily(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParsePrefixes(t *testing.T) {
	got, err := ParsePrefixes([]string{"10.0.0.1/31", "2001:db8::/64"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].String() != "10.0.0.1/31" {
		t.Errorf("ParsePrefixes = %v", got)
	}
	if _, err := ParsePrefixes([]string{"x"}); err == nil {
		t.Error("expected error")
	}
}
