package sysprocess

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

type Usage struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	RSS        uint64  `json:"rss"`
	CPUPercent float64 `json:"cpuPercent"`
	NumThreads int32   `json:"numThreads"`
}

func GetProcessNameByPID(pid int32) (string, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return "", err
	}

	processName, err := proc.Name()
	if err != nil {
		return "", err
	}

	return processName, nil
}

func GetMyProcessName() (string, error) {
	return GetProcessNameByPID(int32(os.Getpid()))
}

// GetMyUsage reports the current process; fields that cannot be read stay zero.
func GetMyUsage() (Usage, error) {
	pid := int32(os.Getpid())
	proc, err := process.NewProcess(pid)
	if err != nil {
		return Usage{PID: pid}, err
	}

	usage := Usage{PID: pid}
	usage.Name, _ = proc.Name()
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		usage.RSS = mem.RSS
	}
	usage.CPUPercent, _ = proc.CPUPercent()
	usage.NumThreads, _ = proc.NumThreads()

	return usage, nil
}
