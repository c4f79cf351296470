// Package sysmem refuses work when the host is short on memory.
package sysmem

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Probe reports available memory in bytes.
type Probe func(ctx context.Context) (uint64, error)

// VirtualMemory reads available memory from the operating system.
func VirtualMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Guard compares available memory against a floor.
type Guard struct {
	MinFreeMB uint64
	Probe     Probe
}

// NewGuard returns a guard backed by the operating system.
func NewGuard(minFreeMB int) *Guard {
	if minFreeMB < 0 {
		minFreeMB = 0
	}
	return &Guard{MinFreeMB: uint64(minFreeMB), Probe: VirtualMemory}
}

// Available reports whether more than MinFreeMB is free. A failed probe counts
// as available.
func (g *Guard) Available(ctx context.Context) bool {
	if g == nil || g.Probe == nil {
		return true
	}
	free, err := g.Probe(ctx)
	if err != nil {
		logrus.WithError(err).Warn("service: memory check failed")
		return true
	}
	freeMB := free / 1024 / 1024
	if freeMB <= g.MinFreeMB {
		logrus.WithFields(logrus.Fields{
			"available_mb": freeMB,
			"required_mb":  g.MinFreeMB,
		}).Warn("service: insufficient memory available")
		return false
	}
	return true
}
