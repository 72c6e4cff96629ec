package sched

import "kacchi/kacchios/proc"

// Tick advances logical time by one unit. Within a tick the order is
// fixed: wake due sleepers, bill CPU time, completion check, quantum
// decrement, preemption decision, periodic aging.
func (s *Scheduler) Tick() {
	if !s.running {
		return
	}

	s.tick++
	s.stats.TotalTicks++
	s.pm.OnTick()
	s.pm.WakeDue()

	c := s.pm.Current()
	if c == nil {
		s.stats.IdleTicks++
		s.Schedule()
		return
	}

	c.CPUTime++
	if c.RequiredTime > 0 {
		if c.RemainingTime > 0 {
			c.RemainingTime--
		}
		if c.CPUTime >= c.RequiredTime {
			s.con.PutString("[SCHEDULER] Process ")
			s.con.PutDec32(c.PID)
			s.con.PutString(" (")
			s.con.PutString(c.Name)
			s.con.PutString(") completed after ")
			s.con.PutDec32(c.CPUTime)
			s.con.PutString(" ticks\n")
			s.pm.Terminate(c.PID)
			s.Schedule()
			return
		}
	}

	if s.slice > 0 {
		s.slice--
	}
	if s.cfg.EnablePreemption && s.slice == 0 {
		s.con.PutString("[SCHEDULER] Time quantum expired for PID ")
		s.con.PutDec32(c.PID)
		s.con.PutString("\n")
		s.stats.Preemptions++
		s.Schedule()
		return
	}

	if s.cfg.EnableAging && s.tick%s.cfg.AgingInterval == 0 {
		s.CheckAging()
	}
}

// Schedule parks the current process back in the ready queue, selects
// the next runnable one, and performs the context bookkeeping.
func (s *Scheduler) Schedule() {
	if !s.running {
		return
	}

	prev := s.pm.Current()
	if prev != nil && prev.State == proc.StateCurrent {
		s.pm.SetState(prev.PID, proc.StateReady)
	}

	next := s.selectNext()
	if next == nil {
		s.con.PutString("[SCHEDULER] No process to schedule\n")
		return
	}

	s.con.PutString("[SCHEDULER] Switching to: ")
	s.con.PutString(next.Name)
	s.con.PutString(" (PID ")
	s.con.PutDec32(next.PID)
	s.con.PutString(")\n")

	s.pm.SetState(next.PID, proc.StateCurrent)
	s.slice = next.Quantum
	s.stats.ContextSwitches++

	if prev != next {
		s.switchContext(prev, next)
	}
}

// Admit runs the creation-time scheduling decision for a newly created
// process: the idle engine picks it up immediately, and a strictly
// higher priority than the running process preempts when preemption is
// on.
func (s *Scheduler) Admit(p *proc.Process) {
	if p == nil || !s.running {
		return
	}
	cur := s.pm.Current()
	if cur == nil {
		s.Schedule()
		return
	}
	if s.cfg.EnablePreemption && p.Priority > cur.Priority {
		s.Schedule()
	}
}

// selectNext picks the next process under the active policy. Every
// current policy reduces to taking the ready-queue head: the queue
// already encodes priority order and FIFO within a level.
func (s *Scheduler) selectNext() *proc.Process {
	switch s.cfg.Policy {
	case PolicyRoundRobin:
		return s.selectRoundRobin()
	case PolicyPriority:
		return s.selectPriority()
	case PolicyPriorityRR:
		return s.selectPriorityRR()
	case PolicyFCFS:
		return s.selectFCFS()
	default:
		return s.selectRoundRobin()
	}
}

func (s *Scheduler) selectRoundRobin() *proc.Process {
	return s.pm.DequeueReady()
}

func (s *Scheduler) selectPriority() *proc.Process {
	return s.pm.DequeueReady()
}

func (s *Scheduler) selectPriorityRR() *proc.Process {
	// Per-level rotation would need per-level cursors; the queue's
	// FIFO-within-level order already rotates equal priorities.
	return s.pm.DequeueReady()
}

func (s *Scheduler) selectFCFS() *proc.Process {
	return s.pm.DequeueReady()
}

// Yield gives up the CPU voluntarily.
func (s *Scheduler) Yield() {
	s.stats.VoluntaryYields++
	s.con.PutString("[SCHEDULER] Process ")
	if c := s.pm.Current(); c != nil {
		s.con.PutDec32(c.PID)
	}
	s.con.PutString(" yielded CPU\n")
	s.Schedule()
}

// CheckAging ages every READY process and boosts those that reach the
// threshold one level, re-queueing them behind their new peers.
func (s *Scheduler) CheckAging() {
	if !s.cfg.EnableAging {
		return
	}
	s.pm.ForEach(func(p *proc.Process) {
		if p.State != proc.StateReady {
			return
		}
		p.Age++
		if p.Age >= s.cfg.AgingThreshold && p.Priority < proc.PriorityCritical {
			s.con.PutString("[SCHEDULER] Aging: Boosting priority of PID ")
			s.con.PutDec32(p.PID)
			s.con.PutString(" (age=")
			s.con.PutDec32(p.Age)
			s.con.PutString(")\n")
			s.pm.BoostPriority(p.PID)
			s.pm.ResetAge(p.PID)
			s.stats.AgingBoosts++
		}
	})
}
