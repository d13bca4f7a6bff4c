// synthctl/pkg/targets/addresses.go

package targets

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
	"mkowalik/synthctl/pkg/matcher"
)

// Family restricts which address families a source contributes.
type Family string

const (
	FamilyDual Family = "IP_FAMILY_DUAL"
	FamilyV4   Family = "IP_FAMILY_V4"
	FamilyV6   Family = "IP_FAMILY_V6"
)

// ParseFamily accepts the short spelling used in test definitions and
// the enum spelling used on the API wire.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "", "dual", "ip_family_dual":
		return FamilyDual, nil
	case "v4", "ipv4", "ip_family_v4":
		return FamilyV4, nil
	case "v6", "ipv6", "ip_family_v6":
		return FamilyV6, nil
	default:
		return "", logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("invalid address family '%s'", s), nil, nil)
	}
}

// SelectionSpec configures one address source.
type SelectionSpec struct {
	Family     Family
	PublicOnly bool
}

func parseSelectionSpec(source string, cfg interface{}) (*SelectionSpec, error) {
	spec := &SelectionSpec{Family: FamilyDual}
	if cfg == nil {
		return spec, nil
	}
	m, ok := cfg.(map[string]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("'%s' must be a mapping", source), nil,
			map[string]interface{}{"value": cfg})
	}
	if raw, present := m["family"]; present {
		s, ok := raw.(string)
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("'%s.family' must be a string", source), nil,
				map[string]interface{}{"value": raw})
		}
		family, err := ParseFamily(s)
		if err != nil {
			return nil, err
		}
		spec.Family = family
	}
	if raw, present := m["public_only"]; present {
		b, ok := raw.(bool)
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("'%s.public_only' must be a boolean", source), nil,
				map[string]interface{}{"value": raw})
		}
		spec.PublicOnly = b
	}
	return spec, nil
}

// Deriver turns matched devices into a deduplicated target address
// list. Sources are extracted per device in the order interface
// addresses, sending IPs, SNMP IP; at least one source must be
// configured.
type Deriver struct {
	Devices            *matcher.RuleSet
	Interfaces         *matcher.RuleSet
	InterfaceAddresses *SelectionSpec
	SendingIPs         *SelectionSpec
	SNMPIP             *SelectionSpec
	MaxMatches         int // 0 means unlimited
	MinMatches         int
}

// ParseDeriver parses the "match" body of a targets section.
func ParseDeriver(cfg map[string]interface{}) (*Deriver, error) {
	d := &Deriver{MinMatches: 1}

	var err error
	if d.Devices, err = matcher.ParseRuleSet(cfg["devices"]); err != nil {
		return nil, err
	}
	if d.Interfaces, err = matcher.ParseRuleSet(cfg["interfaces"]); err != nil {
		return nil, err
	}

	if raw, present := cfg["interface_addresses"]; present {
		if d.InterfaceAddresses, err = parseSelectionSpec("interface_addresses", raw); err != nil {
			return nil, err
		}
	}
	if raw, present := cfg["sending_ips"]; present {
		if d.SendingIPs, err = parseSelectionSpec("sending_ips", raw); err != nil {
			return nil, err
		}
	}
	if raw, present := cfg["snmp_ip"]; present {
		if d.SNMPIP, err = parseSelectionSpec("snmp_ip", raw); err != nil {
			return nil, err
		}
	}
	if d.InterfaceAddresses == nil && d.SendingIPs == nil && d.SNMPIP == nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"address selection missing in 'targets' section: one of 'interface_addresses', 'sending_ips', 'snmp_ip' is required", nil, nil)
	}

	if raw, present := cfg["max_matches"]; present {
		if d.MaxMatches, err = intValue("max_matches", raw); err != nil {
			return nil, err
		}
	}
	if raw, present := cfg["min_matches"]; present {
		if d.MinMatches, err = intValue("min_matches", raw); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func intValue(key string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if float64(int(v)) == v {
			return int(v), nil
		}
	}
	return 0, logging.NewError(logging.ErrorTypeConfig,
		fmt.Sprintf("'%s' must be an integer", key), nil,
		map[string]interface{}{"value": raw})
}

// Derive matches devices from src and derives their addresses.
func (d *Deriver) Derive(ctx context.Context, src inventory.Source) ([]string, error) {
	devices, err := src.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := matcher.Select(d.Devices, devices)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, logging.NewError(logging.ErrorTypeMatch,
			"no device matched configuration", nil, nil)
	}
	logging.Logger.Debug().Int("devices", len(devices)).Int("matched", len(matched)).Msg("Matched target devices")
	return d.DeriveFrom(ctx, src, matched)
}

// DeriveFrom derives addresses from already-matched devices.
func (d *Deriver) DeriveFrom(ctx context.Context, src inventory.Source, devices []*inventory.Device) ([]string, error) {
	set := newOrderedSet(d.MaxMatches)

device_loop:
	for _, dev := range devices {
		if d.InterfaceAddresses != nil {
			interfaces, err := src.ListInterfaces(ctx, dev.ID)
			if err != nil {
				return nil, err
			}
			kept, err := matcher.Select(d.Interfaces, interfaces)
			if err != nil {
				return nil, err
			}
			for _, ifc := range kept {
				if ifc.IPAddress != "" {
					if !set.add(ifc.IPAddress, d.InterfaceAddresses) {
						break device_loop
					}
				}
				for _, a := range ifc.SecondaryIPs {
					if !set.add(a, d.InterfaceAddresses) {
						break device_loop
					}
				}
			}
		}
		if d.SendingIPs != nil {
			for _, a := range dev.SendingIPs {
				if !set.add(a, d.SendingIPs) {
					break device_loop
				}
			}
		}
		if d.SNMPIP != nil && dev.SNMPIP != "" {
			if !set.add(dev.SNMPIP, d.SNMPIP) {
				break device_loop
			}
		}
	}

	addresses := set.values()
	if len(addresses) < d.MinMatches {
		return nil, logging.NewError(logging.ErrorTypeMatch,
			fmt.Sprintf("only %d targets matched, %d required", len(addresses), d.MinMatches), nil, nil)
	}
	logging.Logger.Debug().Int("addresses", len(addresses)).Msg("Derived target addresses")
	return addresses, nil
}

// orderedSet deduplicates addresses preserving first-seen order and
// enforcing the optional match cap.
type orderedSet struct {
	max  int
	seen map[string]struct{}
	out  []string
}

func newOrderedSet(max int) *orderedSet {
	return &orderedSet{max: max, seen: make(map[string]struct{})}
}

// add filters, normalizes and records an address candidate. It returns
// false once the cap is reached, signalling the caller to stop.
func (s *orderedSet) add(raw string, spec *SelectionSpec) bool {
	addr, ok := acceptAddress(raw, spec)
	if !ok {
		return true
	}
	if _, dup := s.seen[addr]; dup {
		return true
	}
	if s.max > 0 && len(s.out) >= s.max {
		logging.Logger.Debug().Int("max_matches", s.max).Msg("Target limit reached")
		return false
	}
	s.seen[addr] = struct{}{}
	s.out = append(s.out, addr)
	return true
}

func (s *orderedSet) values() []string {
	return s.out
}

// acceptAddress applies family and public filtering and returns the
// normalized address string. Unparseable inventory addresses are
// skipped with a warning rather than failing the derivation.
func acceptAddress(raw string, spec *SelectionSpec) (string, bool) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		logging.Logger.Warn().Str("address", raw).Msg("Skipping invalid address in inventory")
		return "", false
	}
	// Family classification follows address syntax: a colon means IPv6.
	isV6 := strings.Contains(raw, ":")
	switch spec.Family {
	case FamilyV4:
		if isV6 {
			return "", false
		}
	case FamilyV6:
		if !isV6 {
			return "", false
		}
	}
	if spec.PublicOnly && !isPublic(addr) {
		logging.Logger.Debug().Str("address", raw).Msg("Excluding non-public address")
		return "", false
	}
	return addr.String(), true
}

// specialUse lists IANA special-use ranges not already covered by the
// netip predicates: CGNAT, documentation, benchmarking, protocol
// assignments, class E, discard-only.
var specialUse = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsUnspecified() || addr.IsMulticast() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsPrivate() {
		return false
	}
	for _, p := range specialUse {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
