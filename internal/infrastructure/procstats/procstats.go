package procstats

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"
)

// Stats is a snapshot of this process's resource usage
type Stats struct {
	PID        int32
	RSSBytes   uint64
	VMSBytes   uint64
	NumThreads int32
}

// Self returns resource usage of the current process
func Self() (*Stats, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process %d: %w", pid, err)
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}

	threads, err := p.NumThreads()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread count: %w", err)
	}

	return &Stats{
		PID:        pid,
		RSSBytes:   mem.RSS,
		VMSBytes:   mem.VMS,
		NumThreads: threads,
	}, nil
}
