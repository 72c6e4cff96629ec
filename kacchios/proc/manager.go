package proc

import (
	"fmt"

	"kacchi/kacchios/console"
	"kacchi/kacchios/mem"
)

// Stats summarizes the process table.
type Stats struct {
	TotalCreated uint32
	Active       uint32
	Ready        uint32
	Blocked      uint32
	Terminated   uint32
}

// Manager owns the process table and the ready queue. The scheduler
// mutates both only through these operations.
type Manager struct {
	mm  *mem.Manager
	con *console.Console

	table   [MaxProcesses]*Process
	nextPID uint32
	current *Process
	created uint32

	head *Process
	tail *Process

	ticks uint32
}

// New initializes an empty process table. PID 0 is reserved.
func New(mm *mem.Manager, con *console.Console) *Manager {
	m := &Manager{mm: mm, con: con, nextPID: 1}
	con.PutString("[PROCESS] Process manager initialized\n")
	con.PutString("[PROCESS] Max processes: ")
	con.PutDec32(MaxProcesses)
	con.PutString("\n")
	return m
}

// OnTick advances the manager's notion of time. Creation timestamps,
// wait accounting, and sleep wake-ups all derive from it.
func (m *Manager) OnTick() { m.ticks++ }

// Now returns the manager's current tick.
func (m *Manager) Now() uint32 { return m.ticks }

// Create allocates and registers a new process in READY state.
// requiredTime of 0 means unbounded. Returns nil on any resource
// failure; no partial state is left behind.
func (m *Manager) Create(name string, entry uint32, pri Priority, requiredTime uint32) *Process {
	heapAddr := m.mm.Alloc(pcbBytes)
	if heapAddr == 0 {
		m.con.PutString("[PROCESS] Failed to allocate PCB\n")
		return nil
	}

	if len(name) > 31 {
		name = name[:31]
	}
	p := &Process{
		PID:           m.nextPID,
		Name:          name,
		State:         StateReady,
		Priority:      pri,
		Quantum:       pri.DefaultQuantum(),
		RequiredTime:  requiredTime,
		RemainingTime: requiredTime,
		CreationTime:  m.ticks,
		heapAddr:      heapAddr,
	}
	m.nextPID++
	if m.current != nil {
		p.ParentPID = m.current.PID
	}

	p.StackTop = m.mm.StackAlloc(p.PID)
	if p.StackTop == 0 {
		m.con.PutString("[PROCESS] Failed to allocate stack\n")
		m.mm.Free(heapAddr)
		return nil
	}
	p.StackBase = m.mm.StackBase(p.PID)
	p.StackSize = p.StackTop - p.StackBase

	initContext(p, entry)

	slot := -1
	for i := range m.table {
		if m.table[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		m.con.PutString("[PROCESS] process table full\n")
		m.mm.StackFree(p.PID)
		m.mm.Free(heapAddr)
		return nil
	}
	m.table[slot] = p

	m.enqueueReady(p)
	m.created++

	m.con.PutString("[PROCESS] Created process '")
	m.con.PutString(p.Name)
	m.con.PutString("' (PID ")
	m.con.PutDec32(p.PID)
	m.con.PutString(", Priority ")
	m.con.PutString(p.Priority.String())
	m.con.PutString(")\n")
	return p
}

// initContext seeds the register record a first restore would load:
// execution starts at entry on the process's own stack, interrupts
// enabled, flat kernel segments. General registers carry PID-derived
// values so a register dump identifies its owner.
func initContext(p *Process, entry uint32) {
	p.Context = CPUContext{
		EIP:    entry,
		ESP:    p.StackTop,
		EBP:    p.StackTop,
		EAX:    0xAAAA0000 | p.PID,
		EBX:    0xBBBB0000 | p.PID,
		ECX:    0xCCCC0000 | p.PID,
		EDX:    0xDDDD0000 | p.PID,
		ESI:    0x5151E000 | p.PID,
		EDI:    0xD1D10000 | p.PID,
		EFLAGS: 0x202,
		CS:     0x08,
		DS:     0x10,
		ES:     0x10,
		FS:     0x10,
		GS:     0x10,
		SS:     0x10,
	}
}

// Terminate tears a process down: out of the ready queue if READY, the
// current slot if CURRENT, then stack, table slot, and PCB bytes.
func (m *Manager) Terminate(pid uint32) {
	p := m.ByPID(pid)
	if p == nil {
		m.con.PutString("[PROCESS] Cannot terminate: PID ")
		m.con.PutDec32(pid)
		m.con.PutString(" not found\n")
		return
	}

	m.con.PutString("[PROCESS] Terminating process '")
	m.con.PutString(p.Name)
	m.con.PutString("' (PID ")
	m.con.PutDec32(pid)
	m.con.PutString(")\n")

	if p.State == StateReady {
		m.dequeue(p)
	}
	if m.current == p {
		m.current = nil
	}
	p.State = StateTerminated

	m.mm.StackFree(pid)
	for i := range m.table {
		if m.table[i] == p {
			m.table[i] = nil
			break
		}
	}
	m.mm.Free(p.heapAddr)
	p.heapAddr = 0
}

// Exit terminates the current process with an exit code.
func (m *Manager) Exit(code int32) {
	if m.current == nil {
		m.con.PutString("[PROCESS] No current process to exit\n")
		return
	}
	m.current.ExitCode = code
	m.con.PutString("[PROCESS] Process '")
	m.con.PutString(m.current.Name)
	m.con.PutString("' exiting with code ")
	m.con.PutDec32(uint32(code))
	m.con.PutString("\n")
	m.Terminate(m.current.PID)
}

// SetState moves a process between states, keeping ready-queue
// membership and the current-process pointer consistent.
func (m *Manager) SetState(pid uint32, state State) {
	p := m.ByPID(pid)
	if p == nil {
		return
	}

	old := p.State
	p.State = state

	if old == StateReady && state != StateReady {
		m.dequeue(p)
	} else if old != StateReady && state == StateReady {
		m.enqueueReady(p)
	}

	if state == StateCurrent {
		m.current = p
	} else if p == m.current {
		m.current = nil
	}
}

// GetState returns a process's state; unknown PIDs read as TERMINATED.
func (m *Manager) GetState(pid uint32) State {
	if p := m.ByPID(pid); p != nil {
		return p.State
	}
	return StateTerminated
}

func (m *Manager) Block(pid uint32)   { m.SetState(pid, StateBlocked) }
func (m *Manager) Unblock(pid uint32) { m.SetState(pid, StateReady) }

// Sleep parks a process until ticks have elapsed. ticks of 0 sleeps
// with no wake-up, like Block.
func (m *Manager) Sleep(pid uint32, ticks uint32) {
	p := m.ByPID(pid)
	if p == nil {
		return
	}
	m.SetState(pid, StateSleeping)
	if ticks > 0 {
		p.WakeTick = m.ticks + ticks
	} else {
		p.WakeTick = 0
	}
}

// WakeDue readies every sleeper whose wake tick has arrived.
func (m *Manager) WakeDue() {
	for _, p := range m.table {
		if p == nil || p.State != StateSleeping || p.WakeTick == 0 {
			continue
		}
		if m.ticks >= p.WakeTick {
			p.WakeTick = 0
			m.SetState(p.PID, StateReady)
		}
	}
}

// ByPID looks a process up; nil when unknown.
func (m *Manager) ByPID(pid uint32) *Process {
	for _, p := range m.table {
		if p != nil && p.PID == pid {
			return p
		}
	}
	return nil
}

// Current returns the running process, or nil.
func (m *Manager) Current() *Process { return m.current }

// CurrentPID returns the running process's PID, or 0.
func (m *Manager) CurrentPID() uint32 {
	if m.current == nil {
		return 0
	}
	return m.current.PID
}

// SetPriority changes a process's priority, relocating it in the ready
// queue when it is queued.
func (m *Manager) SetPriority(pid uint32, pri Priority) {
	p := m.ByPID(pid)
	if p == nil {
		return
	}
	p.Priority = pri
	if p.State == StateReady {
		m.dequeue(p)
		m.enqueueReady(p)
	}
}

// BoostPriority raises priority one level, saturating at CRITICAL. A
// boosted READY process re-enters its new level behind its peers.
func (m *Manager) BoostPriority(pid uint32) {
	p := m.ByPID(pid)
	if p == nil {
		return
	}
	if p.Priority < PriorityCritical {
		p.Priority++
		if p.State == StateReady {
			m.dequeue(p)
			m.enqueueReady(p)
		}
	}
}

// ResetAge clears the aging counter.
func (m *Manager) ResetAge(pid uint32) {
	if p := m.ByPID(pid); p != nil {
		p.Age = 0
	}
}

// ForEach visits every live table entry.
func (m *Manager) ForEach(fn func(*Process)) {
	for _, p := range m.table {
		if p != nil {
			fn(p)
		}
	}
}

// Count returns the number of live table entries.
func (m *Manager) Count() uint32 {
	var n uint32
	for _, p := range m.table {
		if p != nil {
			n++
		}
	}
	return n
}

// CountByState returns the number of live processes in a given state.
func (m *Manager) CountByState(s State) uint32 {
	var n uint32
	for _, p := range m.table {
		if p != nil && p.State == s {
			n++
		}
	}
	return n
}

// GetStats derives table counters in one scan.
func (m *Manager) GetStats() Stats {
	st := Stats{TotalCreated: m.created}
	for _, p := range m.table {
		if p == nil {
			continue
		}
		st.Active++
		switch p.State {
		case StateReady:
			st.Ready++
		case StateBlocked, StateWaiting, StateSleeping:
			st.Blocked++
		case StateTerminated:
			st.Terminated++
		}
	}
	return st
}

// PrintTable emits the ps listing.
func (m *Manager) PrintTable() {
	c := m.con
	c.PutString("\n=== Process Table ===\n")
	c.PutString("PID  Name            State      Pri  CPU   Req   Progress\n")
	c.PutString("---  --------------  ---------  ---  ----  ----  --------\n")

	var count uint32
	for _, p := range m.table {
		if p == nil {
			continue
		}
		line := fmt.Sprintf("%3d  %-14s  %-9s  %3d  %4d  ", p.PID, p.Name, p.State, p.Priority, p.CPUTime)
		if p.RequiredTime > 0 {
			line += fmt.Sprintf("%4d  ", p.RequiredTime)
			if p.CPUTime >= p.RequiredTime {
				line += "DONE"
			} else {
				line += fmt.Sprintf("%3d%%", p.CPUTime*100/p.RequiredTime)
			}
		} else {
			line += "   -     -"
		}
		c.PutString(line)
		c.PutString("\n")
		count++
	}

	c.PutString("---\n")
	c.PutString("Total: ")
	c.PutDec32(count)
	c.PutString(" active processes\n")
	c.PutString("====================\n\n")
}

// PrintInfo emits the detail view for one process.
func (m *Manager) PrintInfo(pid uint32) {
	p := m.ByPID(pid)
	if p == nil {
		m.con.PutString("Process not found\n")
		return
	}
	c := m.con
	c.PutString("\n=== Process Information ===\n")
	c.PutString(fmt.Sprintf("PID:          %d\n", p.PID))
	c.PutString(fmt.Sprintf("Name:         %s\n", p.Name))
	c.PutString(fmt.Sprintf("State:        %s\n", p.State))
	c.PutString(fmt.Sprintf("Priority:     %s\n", p.Priority))
	c.PutString(fmt.Sprintf("Parent PID:   %d\n", p.ParentPID))
	c.PutString("Stack Base:   0x")
	c.PutHex32(p.StackBase)
	c.PutString("\nStack Top:    0x")
	c.PutHex32(p.StackTop)
	c.PutString("\n")
	c.PutString(fmt.Sprintf("Stack Size:   %d bytes\n", p.StackSize))
	c.PutString(fmt.Sprintf("CPU Time:     %d\n", p.CPUTime))
	c.PutString(fmt.Sprintf("Wait Time:    %d\n", p.WaitTime))
	c.PutString(fmt.Sprintf("Age:          %d\n", p.Age))
	c.PutString(fmt.Sprintf("Messages:     %d\n", p.msgCount))
	c.PutString("==========================\n\n")
}
