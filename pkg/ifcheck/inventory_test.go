package ifcheck

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neteng-tools/popctl/pkg/netbox"
)

type fakeInventory struct {
	ifaces []netbox.Interface
	terms  map[int]*netbox.CircuitTermination
	ips    map[int][]netbox.IPAddress
}

func (f *fakeInventory) Interfaces(context.Context, string) ([]netbox.Interface, error) {
	return f.ifaces, nil
}

func (f *fakeInventory) CircuitTermination(_ context.Context, id int) (*netbox.CircuitTermination, error) {
	return f.terms[id], nil
}

func (f *fakeInventory) IPAddresses(_ context.Context, q netbox.IPQuery) ([]netbox.IPAddress, error) {
	return f.ips[q.InterfaceID], nil
}

func newInventory() *fakeInventory {
	return &fakeInventory{
		ifaces: []netbox.Interface{
			{ID: 1, Name: "mcx1p1", MACAddress: "0C:42:A1:3B:5C:10"},
			{ID: 2, Name: "mcx1p2", MACAddress: "0C:42:A1:3B:5C:11"},
			{ID: 3, Name: "mgmt0"},
		},
		terms: map[int]*netbox.CircuitTermination{
			1: {Circuit: netbox.Circuit{
				CID:      "TIS-123",
				Provider: netbox.Ref{Name: "Telecom Italia Sparkle"},
				Type:     netbox.Ref{Name: "IP Transit"},
				Status:   netbox.Label{Label: "Active"},
			}},
			2: {Circuit: netbox.Circuit{
				CID:      "DECIX-9",
				Provider: netbox.Ref{Name: "DE-CIX"},
				Type:     netbox.Ref{Name: "IXP Port"},
				Status:   netbox.Label{Label: "Active"},
			}},
		},
		ips: map[int][]netbox.IPAddress{
			1: {
				{Address: "100.64.10.1/29", Tags: []netbox.Ref{{Slug: "interface-local-ip"}}},
				{Address: "62.115.61.13/31", Tags: []netbox.Ref{{Slug: "circuit-interface-ip"}}},
			},
		},
	}
}

func TestCollect(t *testing.T) {
	got, err := Collect(context.Background(), newInventory(), "sub-fra01-data01", false)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []*Interface{
		{Name: "mcx1p1", MAC: "0C:42:A1:3B:5C:10", CircuitID: "TIS-123", Provider: "Telecom Italia Sparkle", Status: "Active", Type: Transit, IP: "62.115.61.13/31"},
		{Name: "mcx1p2", MAC: "0C:42:A1:3B:5C:11", CircuitID: "DECIX-9", Provider: "DE-CIX", Status: "Active", Type: IXP},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_Diagnostic(t *testing.T) {
	got, err := Collect(context.Background(), newInventory(), "sub-fra01-data01", true)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 1 || got[0].Name != "mgmt0" || got[0].Status != "Unconfigured" {
		t.Errorf("Collect diagnostic = %+v", got)
	}
}

func TestSelect(t *testing.T) {
	all := []*Interface{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	got, err := Select(all, []string{"c", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "c" || got[1].Name != "a" {
		t.Errorf("Select = %v", got)
	}
	if got, _ := Select(all, nil); len(got) != 3 {
		t.Errorf("Select(nil) = %d interfaces", len(got))
	}
	if _, err := Select(all, []string{"z"}); err == nil {
		t.Error("Select(z) should fail")
	}
}
