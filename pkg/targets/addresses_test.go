// synthctl/pkg/targets/addresses_test.go

package targets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
)

func testSource() *inventory.FileSource {
	return &inventory.FileSource{
		Devices: []*inventory.Device{
			{
				ID:         "1",
				DeviceName: "edge-1",
				DeviceType: "router",
				Site:       map[string]interface{}{"site_name": "DC1"},
				SendingIPs: []string{"198.51.100.7", "10.1.0.1"},
				SNMPIP:     "10.1.0.2",
			},
			{
				ID:         "2",
				DeviceName: "edge-2",
				DeviceType: "gateway",
				Site:       map[string]interface{}{"site_name": "DC2"},
				SendingIPs: []string{"8.8.8.8"},
				SNMPIP:     "2001:4860::1",
			},
		},
		Interfaces: []*inventory.Interface{
			{
				ID:           "1-0",
				DeviceID:     "1",
				IPAddress:    "10.0.0.1",
				SecondaryIPs: []string{"10.0.0.1", "10.0.0.2"},
				Description:  "uplink",
			},
			{
				ID:          "1-1",
				DeviceID:    "1",
				IPAddress:   "169.254.0.1",
				Description: "mgmt",
			},
			{
				ID:          "2-0",
				DeviceID:    "2",
				IPAddress:   "203.0.113.9",
				Description: "uplink",
			},
		},
	}
}

func TestDeriveInterfaceAddressesDeduplicates(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_name": "edge-1"},
		},
		"interface_addresses": nil,
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	// 10.0.0.1 appears as primary and secondary; kept once, first seen
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "169.254.0.1"}, addrs)
}

func TestDerivePublicOnlyExcludesSpecialRanges(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"interface_addresses": map[string]interface{}{"public_only": true},
		"sending_ips":         map[string]interface{}{"public_only": true},
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	// link-local 169.254.0.1, documentation 198.51.100.7 and 203.0.113.9,
	// and all RFC1918 addresses are excluded
	assert.Equal(t, []string{"8.8.8.8"}, addrs)
}

func TestDeriveFamilyFiltering(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"snmp_ip": map[string]interface{}{"family": "v6"},
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"2001:4860::1"}, addrs)

	d, err = ParseDeriver(map[string]interface{}{
		"snmp_ip": map[string]interface{}{"family": "ipv4"},
	})
	require.NoError(t, err)

	addrs, err = d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1.0.2"}, addrs)
}

func TestDeriveSourceOrderPerDevice(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_name": "edge-2"},
		},
		"interface_addresses": nil,
		"sending_ips":         nil,
		"snmp_ip":             nil,
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.9", "8.8.8.8", "2001:4860::1"}, addrs)
}

func TestDeriveInterfaceRuleFilter(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_name": "edge-1"},
		},
		"interfaces": []interface{}{
			map[string]interface{}{"description": "uplink"},
		},
		"interface_addresses": nil,
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addrs)
}

func TestDeriveSkipsInvalidAddresses(t *testing.T) {
	src := testSource()
	src.Devices[0].SNMPIP = "not-an-address"

	d, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_name": "edge-1"},
		},
		"snmp_ip":     nil,
		"sending_ips": nil,
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"198.51.100.7", "10.1.0.1"}, addrs)
}

func TestDeriveMaxMatchesStopsEarly(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"sending_ips": nil,
		"max_matches": 2,
	})
	require.NoError(t, err)

	addrs, err := d.Derive(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"198.51.100.7", "10.1.0.1"}, addrs)
}

func TestDeriveMinMatchesEnforced(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"snmp_ip":     map[string]interface{}{"family": "v6"},
		"min_matches": 2,
	})
	require.NoError(t, err)

	_, err = d.Derive(context.Background(), testSource())
	assert.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeMatch))
}

func TestDeriveNoDeviceMatched(t *testing.T) {
	d, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_name": "no-such-device"},
		},
		"snmp_ip": nil,
	})
	require.NoError(t, err)

	_, err = d.Derive(context.Background(), testSource())
	assert.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeMatch))
}

func TestParseDeriverRequiresAddressSource(t *testing.T) {
	_, err := ParseDeriver(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"device_type": "router"},
		},
	})
	assert.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
}

func TestParseFamilySpellings(t *testing.T) {
	for _, s := range []string{"", "dual", "IP_FAMILY_DUAL"} {
		f, err := ParseFamily(s)
		assert.NoError(t, err)
		assert.Equal(t, FamilyDual, f)
	}
	for _, s := range []string{"v4", "ipv4", "IP_FAMILY_V4"} {
		f, err := ParseFamily(s)
		assert.NoError(t, err)
		assert.Equal(t, FamilyV4, f)
	}
	for _, s := range []string{"v6", "IPv6", "ip_family_v6"} {
		f, err := ParseFamily(s)
		assert.NoError(t, err)
		assert.Equal(t, FamilyV6, f)
	}
	_, err := ParseFamily("v5")
	assert.Error(t, err)
}

func TestIsPublic(t *testing.T) {
	public := []string{"8.8.8.8", "1.1.1.1", "2001:4860::1"}
	private := []string{
		"10.0.0.1", "172.16.0.1", "192.168.1.1", "127.0.0.1",
		"169.254.0.1", "224.0.0.1", "100.64.0.1", "192.0.2.5",
		"198.18.0.1", "240.0.0.1", "::1", "fe80::1", "fd00::1",
		"2001:db8::1",
	}
	for _, s := range public {
		_, ok := acceptAddress(s, &SelectionSpec{Family: FamilyDual, PublicOnly: true})
		assert.True(t, ok, "%s should be public", s)
	}
	for _, s := range private {
		_, ok := acceptAddress(s, &SelectionSpec{Family: FamilyDual, PublicOnly: true})
		assert.False(t, ok, "%s should not be public", s)
	}
}
