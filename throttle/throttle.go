// Package throttle gates convert runs on host resources. Image
// decode/encode is memory-hungry; refusing work on a saturated host
// beats OOM-killing the process mid-batch.
package throttle

import (
	"fmt"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"convkit/config"
)

type Guard struct {
	cfg     *config.Config
	scratch string
}

func NewGuard(cfg *config.Config, scratchDir string) *Guard {
	return &Guard{cfg: cfg, scratch: scratchDir}
}

// Check verifies the host has enough idle CPU, free memory and free
// disk under the scratch dir to start a convert run. Probe errors are
// logged and ignored; only confirmed saturation refuses work.
func (g *Guard) Check() error {
	p, err := cpu.Percent(time.Second, false)
	if err != nil {
		log.Printf("Warning: could not get CPU usage: %v", err)
	} else if len(p) > 0 && p[0] > (100.0-g.cfg.ThrottleCPU) {
		return fmt.Errorf("not enough idle CPU: current usage %.2f%%, idle threshold %.2f%%", p[0], g.cfg.ThrottleCPU)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("Warning: could not get memory usage: %v", err)
	} else if vm.Available < uint64(g.cfg.ThrottleFreeMem) {
		return fmt.Errorf("not enough free memory: available %d, required %d", vm.Available, g.cfg.ThrottleFreeMem)
	}

	d, err := disk.Usage(g.scratch)
	if err != nil {
		log.Printf("Warning: could not get disk usage for %s: %v", g.scratch, err)
	} else if d.Free < uint64(g.cfg.ThrottleFreeDisk) {
		return fmt.Errorf("not enough free disk space: available %d, required %d", d.Free, g.cfg.ThrottleFreeDisk)
	}
	return nil
}
