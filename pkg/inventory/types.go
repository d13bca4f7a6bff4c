// synthctl/pkg/inventory/types.go

package inventory

// Inventory records are fetched fresh per invocation and are read-only
// to the matching engine. Each record exposes its attributes through
// Attribute; unknown fields returned by the API land in Extra so rules
// can still reference them.

// Device is a monitored network device.
type Device struct {
	ID         string                 `json:"id" yaml:"id"`
	DeviceName string                 `json:"device_name" yaml:"device_name"`
	DeviceType string                 `json:"device_type" yaml:"device_type"`
	Site       map[string]interface{} `json:"site,omitempty" yaml:"site,omitempty"`
	SendingIPs []string               `json:"sending_ips,omitempty" yaml:"sending_ips,omitempty"`
	SNMPIP     string                 `json:"snmp_ip,omitempty" yaml:"snmp_ip,omitempty"`
	Labels     []string               `json:"labels,omitempty" yaml:"labels,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (d *Device) Attribute(key string) (interface{}, bool) {
	switch key {
	case "id":
		return d.ID, true
	case "device_name":
		return d.DeviceName, true
	case "device_type":
		return d.DeviceType, true
	case "site":
		if d.Site == nil {
			return nil, false
		}
		return d.Site, true
	case "sending_ips":
		return d.SendingIPs, true
	case "snmp_ip", "device_snmp_ip":
		return d.SNMPIP, true
	case "labels":
		return d.Labels, true
	}
	val, ok := d.Extra[key]
	return val, ok
}

func (d *Device) HasLabel(label string) bool {
	for _, l := range d.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Interface is a network interface attached to a device.
type Interface struct {
	ID           string                 `json:"id" yaml:"id"`
	DeviceID     string                 `json:"device_id" yaml:"device_id"`
	IPAddress    string                 `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	SecondaryIPs []string               `json:"secondary_ips,omitempty" yaml:"secondary_ips,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (i *Interface) Attribute(key string) (interface{}, bool) {
	switch key {
	case "id":
		return i.ID, true
	case "device_id":
		return i.DeviceID, true
	case "ip_address":
		return i.IPAddress, true
	case "secondary_ips":
		return i.SecondaryIPs, true
	case "description":
		return i.Description, true
	}
	val, ok := i.Extra[key]
	return val, ok
}

// Agent implementation types as reported by the synthetics API.
const (
	AgentImplRust = "IMPLEMENT_TYPE_RUST"
	AgentImplNode = "IMPLEMENT_TYPE_NODE"
)

// Agent is a probe machine executing synthetic test measurements.
type Agent struct {
	ID      string                 `json:"id" yaml:"id"`
	Name    string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Alias   string                 `json:"alias,omitempty" yaml:"alias,omitempty"`
	Type    string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Impl    string                 `json:"agentImpl,omitempty" yaml:"agent_impl,omitempty"`
	ASN     int                    `json:"asn,omitempty" yaml:"asn,omitempty"`
	Country string                 `json:"country,omitempty" yaml:"country,omitempty"`
	City    string                 `json:"city,omitempty" yaml:"city,omitempty"`
	Labels  []string               `json:"labels,omitempty" yaml:"labels,omitempty"`
	Extra   map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (a *Agent) Attribute(key string) (interface{}, bool) {
	switch key {
	case "id":
		return a.ID, true
	case "name":
		return a.Name, true
	case "alias":
		return a.Alias, true
	case "type":
		return a.Type, true
	case "agent_impl", "agentImpl":
		return a.Impl, true
	case "asn":
		return a.ASN, true
	case "country":
		return a.Country, true
	case "city":
		return a.City, true
	case "labels":
		return a.Labels, true
	}
	val, ok := a.Extra[key]
	return val, ok
}

func (a *Agent) HasLabel(label string) bool {
	for _, l := range a.Labels {
		if l == label {
			return true
		}
	}
	return false
}
