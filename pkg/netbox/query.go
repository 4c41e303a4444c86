package netbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Device looks a device up by exact name.
func (c *Client) Device(ctx context.Context, name string) (*Device, error) {
	devices, err := list[Device](ctx, c, "dcim/devices/", url.Values{"name": {name}})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("device %q: %w", name, ErrNotFound)
	}
	return &devices[0], nil
}

// Site looks a site up by slug.
func (c *Client) Site(ctx context.Context, slug string) (*Site, error) {
	sites, err := list[Site](ctx, c, "dcim/sites/", url.Values{"slug": {slug}})
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("site %q: %w", slug, ErrNotFound)
	}
	return &sites[0], nil
}

// Sites lists the sites of a region (and its child regions) by region slug.
func (c *Client) Sites(ctx context.Context, region string) ([]Site, error) {
	return list[Site](ctx, c, "dcim/sites/", url.Values{"region": {region}})
}

// Interfaces returns every interface of a device.
func (c *Client) Interfaces(ctx context.Context, device string) ([]Interface, error) {
	return list[Interface](ctx, c, "dcim/interfaces/", url.Values{"device": {device}})
}

// IPQuery filters IPAddresses. Zero fields are omitted.
type IPQuery struct {
	Device      string
	Tag         string
	Interfaces  []string
	Family      int
	InterfaceID int
	Parent      string // addresses inside this prefix
}

func (q IPQuery) values() url.Values {
	v := url.Values{}
	if q.Device != "" {
		v.Set("device", q.Device)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	for _, name := range q.Interfaces {
		v.Add("interface", name)
	}
	if q.Family != 0 {
		v.Set("family", strconv.Itoa(q.Family))
	}
	if q.InterfaceID != 0 {
		v.Set("interface_id", strconv.Itoa(q.InterfaceID))
	}
	if q.Parent != "" {
		v.Set("parent", q.Parent)
	}
	return v
}

// IPAddresses lists addresses matching q.
func (c *Client) IPAddresses(ctx context.Context, q IPQuery) ([]IPAddress, error) {
	return list[IPAddress](ctx, c, "ipam/ip-addresses/", q.values())
}

// PrefixQuery filters Prefixes. Zero fields are omitted.
type PrefixQuery struct {
	Role   string
	Family int
	Site   string
}

func (q PrefixQuery) values() url.Values {
	v := url.Values{}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.Family != 0 {
		v.Set("family", strconv.Itoa(q.Family))
	}
	if q.Site != "" {
		v.Set("site", q.Site)
	}
	return v
}

// Prefixes lists prefixes matching q.
func (c *Client) Prefixes(ctx context.Context, q PrefixQuery) ([]Prefix, error) {
	return list[Prefix](ctx, c, "ipam/prefixes/", q.values())
}

// CircuitTermination returns the circuit terminated on an interface, or nil
// when the interface has no circuit.
func (c *Client) CircuitTermination(ctx context.Context, interfaceID int) (*CircuitTermination, error) {
	terms, err := list[CircuitTermination](ctx, c, "circuits/circuit-terminations/",
		url.Values{"interface_id": {strconv.Itoa(interfaceID)}})
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, nil
	}
	return &terms[0], nil
}

// Circuit fetches the full circuit record, including description and custom
// fields the nested termination form leaves out.
func (c *Client) Circuit(ctx context.Context, id int) (*Circuit, error) {
	var circuit Circuit
	if err := c.get(ctx, c.BaseURL+"circuits/circuits/"+strconv.Itoa(id)+"/", &circuit); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("circuit %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &circuit, nil
}
