package sched

import "kacchi/kacchios/proc"

// switchContext saves the live register file into the outgoing PCB and
// loads the incoming PCB's record over it. Records are copied whole;
// their fields are never read individually.
func (s *Scheduler) switchContext(from, to *proc.Process) {
	if from != nil {
		s.con.PutString("[CONTEXT SWITCH] Saving context for PID ")
		s.con.PutDec32(from.PID)
		s.con.PutString("\n")
		from.Context = s.cpu
	}
	if to != nil {
		s.con.PutString("[CONTEXT SWITCH] Restoring context for PID ")
		s.con.PutDec32(to.PID)
		s.con.PutString("\n")
		s.cpu = to.Context
	}
}
