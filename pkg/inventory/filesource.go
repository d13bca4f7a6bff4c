// synthctl/pkg/inventory/filesource.go

package inventory

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"mkowalik/synthctl/pkg/logging"
)

// FileSource is a Source backed by a YAML (or JSON) inventory file.
// It exists for offline matching (synthctl ... --inventory) and for
// tests; the file layout mirrors what the API returns, with interfaces
// listed flat and tied to their device by device_id.
type FileSource struct {
	Devices    []*Device    `yaml:"devices"`
	Interfaces []*Interface `yaml:"interfaces"`
	Agents     []*Agent     `yaml:"agents"`
}

// LoadFile reads and decodes an inventory file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"failed to read inventory file", err,
			map[string]interface{}{"path": path})
	}
	var src FileSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"failed to parse inventory file", err,
			map[string]interface{}{"path": path})
	}
	logging.Logger.Debug().
		Str("path", path).
		Int("devices", len(src.Devices)).
		Int("interfaces", len(src.Interfaces)).
		Int("agents", len(src.Agents)).
		Msg("Loaded inventory file")
	return &src, nil
}

func (s *FileSource) ListDevices(_ context.Context) ([]*Device, error) {
	return s.Devices, nil
}

func (s *FileSource) ListInterfaces(_ context.Context, deviceID string) ([]*Interface, error) {
	var out []*Interface
	for _, ifc := range s.Interfaces {
		if ifc.DeviceID == deviceID {
			out = append(out, ifc)
		}
	}
	return out, nil
}

func (s *FileSource) ListAgents(_ context.Context) ([]*Agent, error) {
	return s.Agents, nil
}
