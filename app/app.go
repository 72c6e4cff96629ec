// Package app boots the engine and wires the shell to it.
package app

import (
	"fmt"
	"sync"

	"kacchi/hal"
	"kacchi/internal/buildinfo"
	"kacchi/kacchios/config"
	"kacchi/kacchios/console"
	"kacchi/kacchios/mem"
	"kacchi/kacchios/proc"
	"kacchi/kacchios/sched"
	"kacchi/kacchios/shell"
)

// System is the booted engine: the three core managers behind one
// monitor, plus the shell bound to the serial console.
type System struct {
	Con   *console.Console
	Mem   *mem.Manager
	Proc  *proc.Manager
	Sched *sched.Scheduler
	Shell *shell.Service

	mu sync.Mutex
}

// New boots in the fixed order memory, process, scheduler, then starts
// the scheduler and builds the shell.
func New(h hal.HAL, cfg config.BootConfig) (*System, error) {
	sys := &System{}
	sys.Con = console.New(h.Serial())

	sys.Con.PutString("\n========================================\n")
	sys.Con.PutString(fmt.Sprintf("    kacchiOS %s\n", buildinfo.Short()))
	sys.Con.PutString("========================================\n\n")

	sys.Mem = mem.New(mem.DefaultConfig(), sys.Con)
	sys.Proc = proc.New(sys.Mem, sys.Con)
	sys.Sched = sched.New(sys.Proc, sys.Con, cfg.ParsedPolicy(), cfg.DefaultQuantum)

	if cfg.AgingThreshold > 0 {
		sys.Sched.SetAgingThreshold(cfg.AgingThreshold)
	}
	if cfg.AgingInterval > 0 {
		sys.Sched.SetAgingInterval(cfg.AgingInterval)
	}
	if cfg.EnableAging != nil {
		sys.Sched.EnableAging(*cfg.EnableAging)
	}
	if cfg.EnablePreemption != nil {
		sys.Sched.EnablePreemption(*cfg.EnablePreemption)
	}

	sys.Sched.Start()

	sh, err := shell.New(sys.Con, sys.Mem, sys.Proc, sys.Sched, &sys.mu)
	if err != nil {
		return nil, err
	}
	sys.Shell = sh
	return sys, nil
}

// Tick advances the scheduler once under the engine monitor. The clock
// goroutine in auto-tick mode calls this; the shell holds the same
// monitor for every command.
func (s *System) Tick() {
	s.mu.Lock()
	s.Sched.Tick()
	s.mu.Unlock()
}
