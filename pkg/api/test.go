// synthctl/pkg/api/test.go

package api

import "time"

// Test statuses as represented on the API wire.
const (
	TestStatusActive  = "TEST_STATUS_ACTIVE"
	TestStatusPaused  = "TEST_STATUS_PAUSED"
	TestStatusDeleted = "TEST_STATUS_DELETED"
)

// Test types accepted by the synthetics API.
const (
	TestTypeIP          = "ip"
	TestTypeNetworkGrid = "network_grid"
	TestTypeHostname    = "hostname"
	TestTypeDNS         = "dns"
	TestTypeDNSGrid     = "dns_grid"
	TestTypeURL         = "url"
	TestTypePageLoad    = "page_load"
	TestTypeAgent       = "agent"
	TestTypeMesh        = "application_mesh"
)

// Test is a synthetic test configuration.
type Test struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Status      string       `json:"status,omitempty"`
	Settings    TestSettings `json:"settings"`
	CreatedDate time.Time    `json:"edate,omitempty"`
}

// TestSettings carries the target/agent assignment and the common
// tunables shared by all test types.
type TestSettings struct {
	AgentIDs   []string `json:"agentIds"`
	Targets    []string `json:"targets,omitempty"`
	Period     int      `json:"period,omitempty"` // seconds
	Family     string   `json:"family,omitempty"`
	Protocol   string   `json:"protocol,omitempty"`
	Port       int      `json:"port,omitempty"`
	Servers    []string `json:"servers,omitempty"`    // dns, dns_grid
	RecordType string   `json:"recordType,omitempty"` // dns, dns_grid
}

// MaxPeriod returns the test period, defaulting to one minute, used to
// size health polling windows.
func (t *Test) MaxPeriod() time.Duration {
	if t.Settings.Period > 0 {
		return time.Duration(t.Settings.Period) * time.Second
	}
	return time.Minute
}

// HealthMoment is one health observation of a test.
type HealthMoment struct {
	Health string    `json:"health"`
	Time   time.Time `json:"time"`
}

// TestHealth is the per-test health summary returned by the API.
type TestHealth struct {
	TestID        string       `json:"testId"`
	OverallHealth HealthMoment `json:"overallHealth"`
}
