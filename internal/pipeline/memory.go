package pipeline

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// memSampler tracks the peak resident set size seen across samples.
type memSampler struct {
	mu   sync.Mutex
	proc *process.Process
	peak uint64
}

func newMemSampler() *memSampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &memSampler{}
	}
	s := &memSampler{proc: p}
	s.sample()
	return s
}

func (s *memSampler) sample() {
	if s.proc == nil {
		return
	}
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.peak = max(s.peak, info.RSS)
	s.mu.Unlock()
}

// PeakMB returns the peak in mebibytes.
func (s *memSampler) PeakMB() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.peak) / (1024 * 1024)
}
