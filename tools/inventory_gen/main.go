// synthctl/tools/inventory_gen/main.go

// inventory_gen produces a fake inventory file for offline matching
// (synthctl --inventory) and for exercising the matcher against
// realistic data volumes.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"gopkg.in/yaml.v3"

	"mkowalik/synthctl/pkg/inventory"
)

var deviceTypes = []string{"router", "gateway", "switch", "host"}

var siteNames = []string{
	"DC1", "DC2", "DC3", "ashburn-pop", "frankfurt-pop", "sydney-pop",
}

var agentCountries = []string{"US", "DE", "JP", "AU", "BR", "GB"}

var labels = []string{
	"edge", "core", "transit", "lab", "prod", "backbone",
}

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

func pick(list []string) string {
	return list[rng.Intn(len(list))]
}

func pickLabels() []string {
	n := rng.Intn(3)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pick(labels))
	}
	return out
}

func genDevice(id int) *inventory.Device {
	return &inventory.Device{
		ID:         fmt.Sprintf("%d", id),
		DeviceName: gofakeit.AppName(),
		DeviceType: pick(deviceTypes),
		Site: map[string]interface{}{
			"site_name": pick(siteNames),
			"city":      gofakeit.City(),
		},
		SendingIPs: []string{gofakeit.IPv4Address(), gofakeit.IPv4Address()},
		SNMPIP:     gofakeit.IPv4Address(),
		Labels:     pickLabels(),
	}
}

func genInterfaces(deviceID string, count int) []*inventory.Interface {
	out := make([]*inventory.Interface, 0, count)
	for i := 0; i < count; i++ {
		ifc := &inventory.Interface{
			ID:          fmt.Sprintf("%s-%d", deviceID, i),
			DeviceID:    deviceID,
			IPAddress:   gofakeit.IPv4Address(),
			Description: gofakeit.HackerPhrase(),
		}
		if rng.Intn(2) == 0 {
			ifc.SecondaryIPs = []string{gofakeit.IPv4Address()}
		}
		out = append(out, ifc)
	}
	return out
}

func genAgent(id int) *inventory.Agent {
	impl := inventory.AgentImplRust
	if rng.Intn(4) == 0 {
		impl = inventory.AgentImplNode
	}
	return &inventory.Agent{
		ID:      fmt.Sprintf("%d", 600+id),
		Name:    gofakeit.DomainName(),
		Alias:   gofakeit.PetName(),
		Type:    "global",
		Impl:    impl,
		ASN:     rng.Intn(64000) + 1,
		Country: pick(agentCountries),
		City:    gofakeit.City(),
		Labels:  pickLabels(),
	}
}

func main() {
	numDevices := flag.Int("devices", 20, "number of devices to generate")
	numAgents := flag.Int("agents", 30, "number of agents to generate")
	seed := flag.Int64("seed", 0, "random seed (0 uses a random one)")
	output := flag.String("output", "", "output file (default stdout)")
	flag.Parse()

	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
		gofakeit.Seed(*seed)
	}

	src := &inventory.FileSource{}
	for i := 0; i < *numDevices; i++ {
		device := genDevice(100 + i)
		src.Devices = append(src.Devices, device)
		src.Interfaces = append(src.Interfaces, genInterfaces(device.ID, rng.Intn(4)+1)...)
	}
	for i := 0; i < *numAgents; i++ {
		src.Agents = append(src.Agents, genAgent(i))
	}

	data, err := yaml.Marshal(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to marshal inventory:", err)
		os.Exit(1)
	}

	if *output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write inventory:", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d devices, %d interfaces, %d agents to %s\n",
		len(src.Devices), len(src.Interfaces), len(src.Agents), *output)
}
