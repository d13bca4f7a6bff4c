// synthctl/pkg/inventory/source.go

package inventory

import "context"

// Source supplies the inventory collections the matching engine runs
// against. Implementations must return fully-materialized collections;
// the engine never evaluates partial or streamed inventories.
type Source interface {
	ListDevices(ctx context.Context) ([]*Device, error)
	ListInterfaces(ctx context.Context, deviceID string) ([]*Interface, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
}
