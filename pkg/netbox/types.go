package netbox

// Ref is the nested {id, name, slug} object NetBox embeds for related
// records.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Label is a choice field such as status.
type Label struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Device struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Site       Ref            `json:"site"`
	Status     Label          `json:"status"`
	DeviceType *DeviceTypeRef `json:"device_type"`
}

type DeviceTypeRef struct {
	ID    int    `json:"id"`
	Model string `json:"model"`
	Slug  string `json:"slug"`
}

type Site struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status Label  `json:"status"`
	Region *Ref   `json:"region"`
}

type Interface struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	MACAddress string `json:"mac_address"`
	Enabled    bool   `json:"enabled"`
	Device     Ref    `json:"device"`
}

type IPAddress struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
	Family  Family `json:"family"`
	Status  Label  `json:"status"`
	Tags    []Ref  `json:"tags"`

	AssignedObjectID int          `json:"assigned_object_id"`
	AssignedObject   *AssignedRef `json:"assigned_object"`
}

// AssignedRef is the interface an IP is assigned to.
type AssignedRef struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Device Ref    `json:"device"`
}

// InterfaceName returns the assigned interface name, or "".
func (ip IPAddress) InterfaceName() string {
	if ip.AssignedObject == nil {
		return ""
	}
	return ip.AssignedObject.Name
}

// HasTag reports whether the address carries the tag slug.
func (ip IPAddress) HasTag(slug string) bool {
	for _, t := range ip.Tags {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

type Family struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type Prefix struct {
	ID     int    `json:"id"`
	Prefix string `json:"prefix"`
	Family Family `json:"family"`
	Role   *Ref   `json:"role"`
	Site   *Ref   `json:"site"`
}

type Circuit struct {
	ID           int                    `json:"id"`
	CID          string                 `json:"cid"`
	Provider     Ref                    `json:"provider"`
	Type         Ref                    `json:"type"`
	Status       Label                  `json:"status"`
	Description  string                 `json:"description"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

// LACPRequired reads the lacp-required custom field.
func (c Circuit) LACPRequired() bool {
	v, _ := c.CustomFields["lacp-required"].(bool)
	return v
}

type CircuitTermination struct {
	ID        int     `json:"id"`
	TermSide  string  `json:"term_side"`
	Circuit   Circuit `json:"circuit"`
	Interface *Ref    `json:"interface"`
}
