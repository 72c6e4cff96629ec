// Package sched drives the engine: tick accounting, quantum expiry,
// policy selection, context-switch bookkeeping, and priority aging.
package sched

import (
	"strings"

	"kacchi/kacchios/console"
	"kacchi/kacchios/proc"
)

// Policy selects the scheduling discipline.
type Policy uint8

const (
	PolicyRoundRobin Policy = iota
	PolicyPriority
	PolicyPriorityRR
	PolicyFCFS
)

func (p Policy) String() string {
	switch p {
	case PolicyRoundRobin:
		return "Round-Robin"
	case PolicyPriority:
		return "Priority-Based"
	case PolicyPriorityRR:
		return "Priority Round-Robin"
	case PolicyFCFS:
		return "First-Come-First-Served"
	default:
		return "Unknown"
	}
}

// ParsePolicy maps a config token to a policy.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round_robin", "rr":
		return PolicyRoundRobin, true
	case "priority":
		return PolicyPriority, true
	case "priority_rr":
		return PolicyPriorityRR, true
	case "fcfs":
		return PolicyFCFS, true
	default:
		return PolicyPriority, false
	}
}

// Config holds the runtime-mutable scheduler knobs.
type Config struct {
	Policy           Policy
	DefaultQuantum   uint32
	MinQuantum       uint32
	MaxQuantum       uint32
	AgingThreshold   uint32
	AgingInterval    uint32
	EnableAging      bool
	EnablePreemption bool
}

// Stats counts scheduler events since boot or the last reset.
type Stats struct {
	TotalTicks      uint32
	IdleTicks       uint32
	ContextSwitches uint32
	Preemptions     uint32
	VoluntaryYields uint32
	AgingBoosts     uint32
}

// Scheduler owns tick time and the context-switch path. It mutates the
// process table and ready queue only through the process manager.
type Scheduler struct {
	pm  *proc.Manager
	con *console.Console

	cfg   Config
	stats Stats

	running bool
	tick    uint32
	slice   uint32

	// Simulated live register file; save and restore copy whole
	// records between it and the PCBs, nothing else touches it.
	cpu proc.CPUContext
}

// New builds a stopped scheduler with the standard knob defaults.
func New(pm *proc.Manager, con *console.Console, policy Policy, defaultQuantum uint32) *Scheduler {
	s := &Scheduler{
		pm:  pm,
		con: con,
		cfg: Config{
			Policy:           policy,
			DefaultQuantum:   defaultQuantum,
			MinQuantum:       10,
			MaxQuantum:       1000,
			AgingThreshold:   100,
			AgingInterval:    50,
			EnableAging:      true,
			EnablePreemption: true,
		},
	}
	s.cfg.DefaultQuantum = s.clampQuantum(defaultQuantum)
	s.slice = s.cfg.DefaultQuantum

	con.PutString("[SCHEDULER] Scheduler initialized\n")
	con.PutString("[SCHEDULER] Policy: ")
	con.PutString(policy.String())
	con.PutString("\n[SCHEDULER] Time quantum: ")
	con.PutDec32(s.cfg.DefaultQuantum)
	con.PutString(" ticks\n")
	return s
}

// Start lets ticks through and immediately schedules.
func (s *Scheduler) Start() {
	s.running = true
	s.con.PutString("[SCHEDULER] Scheduler started\n")
	s.Schedule()
}

// Stop freezes the scheduler; ticks become no-ops.
func (s *Scheduler) Stop() {
	s.running = false
	s.con.PutString("[SCHEDULER] Scheduler stopped\n")
}

// Running reports whether ticks are being processed.
func (s *Scheduler) Running() bool { return s.running }

// NowTick returns the monotonic tick counter.
func (s *Scheduler) NowTick() uint32 { return s.tick }

// Policy returns the active policy.
func (s *Scheduler) Policy() Policy { return s.cfg.Policy }

// SetPolicy switches the scheduling discipline.
func (s *Scheduler) SetPolicy(p Policy) {
	s.cfg.Policy = p
	s.con.PutString("[SCHEDULER] Policy changed to: ")
	s.con.PutString(p.String())
	s.con.PutString("\n")
}

func (s *Scheduler) clampQuantum(q uint32) uint32 {
	if q < s.cfg.MinQuantum {
		return s.cfg.MinQuantum
	}
	if q > s.cfg.MaxQuantum {
		return s.cfg.MaxQuantum
	}
	return q
}

// SetQuantum sets the default quantum, clamped to the configured range.
func (s *Scheduler) SetQuantum(q uint32) {
	s.cfg.DefaultQuantum = s.clampQuantum(q)
	s.con.PutString("[SCHEDULER] Time quantum set to: ")
	s.con.PutDec32(s.cfg.DefaultQuantum)
	s.con.PutString(" ticks\n")
}

// Quantum returns the default quantum.
func (s *Scheduler) Quantum() uint32 { return s.cfg.DefaultQuantum }

// SetProcessQuantum overrides one process's slice length, clamped.
func (s *Scheduler) SetProcessQuantum(pid, q uint32) {
	if p := s.pm.ByPID(pid); p != nil {
		p.Quantum = s.clampQuantum(q)
	}
}

// ProcessQuantum returns a process's slice length, 0 when unknown.
func (s *Scheduler) ProcessQuantum(pid uint32) uint32 {
	if p := s.pm.ByPID(pid); p != nil {
		return p.Quantum
	}
	return 0
}

// EnableAging toggles priority aging.
func (s *Scheduler) EnableAging(on bool) {
	s.cfg.EnableAging = on
	s.con.PutString("[SCHEDULER] Aging ")
	if on {
		s.con.PutString("enabled\n")
	} else {
		s.con.PutString("disabled\n")
	}
}

// SetAgingThreshold sets the age at which a READY process is boosted.
func (s *Scheduler) SetAgingThreshold(t uint32) { s.cfg.AgingThreshold = t }

// SetAgingInterval sets how many ticks apart aging checks run.
func (s *Scheduler) SetAgingInterval(i uint32) {
	if i == 0 {
		i = 1
	}
	s.cfg.AgingInterval = i
}

// EnablePreemption toggles quantum-expiry preemption.
func (s *Scheduler) EnablePreemption(on bool) {
	s.cfg.EnablePreemption = on
	s.con.PutString("[SCHEDULER] Preemption ")
	if on {
		s.con.PutString("enabled\n")
	} else {
		s.con.PutString("disabled\n")
	}
}

// IsPreemptive reports whether quantum expiry preempts.
func (s *Scheduler) IsPreemptive() bool { return s.cfg.EnablePreemption }

// GetConfig returns a copy of the current configuration.
func (s *Scheduler) GetConfig() Config { return s.cfg }

// GetStats returns a copy of the counters.
func (s *Scheduler) GetStats() Stats { return s.stats }

// ResetStats zeroes every counter.
func (s *Scheduler) ResetStats() {
	s.stats = Stats{}
	s.con.PutString("[SCHEDULER] Statistics reset\n")
}

// PrintStats emits the schedstats report.
func (s *Scheduler) PrintStats() {
	c := s.con
	c.PutString("\n=== Scheduler Statistics ===\n")
	c.PutString("Total Ticks:          ")
	c.PutDec32(s.stats.TotalTicks)
	c.PutString("\nIdle Ticks:           ")
	c.PutDec32(s.stats.IdleTicks)
	c.PutString("\nContext Switches:     ")
	c.PutDec32(s.stats.ContextSwitches)
	c.PutString("\nPreemptions:          ")
	c.PutDec32(s.stats.Preemptions)
	c.PutString("\nVoluntary Yields:     ")
	c.PutDec32(s.stats.VoluntaryYields)
	c.PutString("\nAging Boosts:         ")
	c.PutDec32(s.stats.AgingBoosts)
	c.PutString("\n")
	if s.stats.TotalTicks > 0 {
		busy := s.stats.TotalTicks - s.stats.IdleTicks
		c.PutString("CPU Utilization:      ")
		c.PutDec32(busy * 100 / s.stats.TotalTicks)
		c.PutString("%\n")
	}
	c.PutString("===========================\n\n")
}

// PrintConfig emits the schedconf report.
func (s *Scheduler) PrintConfig() {
	c := s.con
	c.PutString("\n=== Scheduler Configuration ===\n")
	c.PutString("Policy:               ")
	c.PutString(s.cfg.Policy.String())
	c.PutString("\nDefault Quantum:      ")
	c.PutDec32(s.cfg.DefaultQuantum)
	c.PutString(" ticks\nQuantum Range:        ")
	c.PutDec32(s.cfg.MinQuantum)
	c.PutString(" - ")
	c.PutDec32(s.cfg.MaxQuantum)
	c.PutString(" ticks\nAging:                ")
	if s.cfg.EnableAging {
		c.PutString("Enabled\n  Threshold:          ")
		c.PutDec32(s.cfg.AgingThreshold)
		c.PutString(" ticks\n  Check Interval:     ")
		c.PutDec32(s.cfg.AgingInterval)
		c.PutString(" ticks\n")
	} else {
		c.PutString("Disabled\n")
	}
	c.PutString("Preemption:           ")
	if s.cfg.EnablePreemption {
		c.PutString("Enabled\n")
	} else {
		c.PutString("Disabled\n")
	}
	c.PutString("Scheduler:            ")
	if s.running {
		c.PutString("Running\n")
	} else {
		c.PutString("Stopped\n")
	}
	c.PutString("==============================\n\n")
}
