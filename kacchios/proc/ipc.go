package proc

// SendResult describes the outcome of a message send.
type SendResult uint8

const (
	SendOK SendResult = iota
	SendErrNoProcess
	SendErrQueueFull
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendErrNoProcess:
		return "no such process"
	case SendErrQueueFull:
		return "queue full"
	default:
		return "unknown"
	}
}

// RecvResult describes the outcome of a message receive.
type RecvResult uint8

const (
	RecvOK RecvResult = iota
	RecvErrNoProcess
	RecvErrWouldBlock
)

func (r RecvResult) String() string {
	switch r {
	case RecvOK:
		return "ok"
	case RecvErrNoProcess:
		return "no current process"
	case RecvErrWouldBlock:
		return "would block"
	default:
		return "unknown"
	}
}

// Send appends one word to the destination's message ring. A receiver
// parked in Receive is woken exactly once.
func (m *Manager) Send(destPID uint32, word uint32) SendResult {
	dest := m.ByPID(destPID)
	if dest == nil {
		m.con.PutString("[IPC] destination process not found\n")
		return SendErrNoProcess
	}
	if dest.msgCount >= MessageCapacity {
		m.con.PutString("[IPC] message queue full\n")
		return SendErrQueueFull
	}

	dest.msgs[dest.msgCount] = word
	dest.msgCount++

	if dest.waitingForMsg {
		dest.waitingForMsg = false
		m.Unblock(destPID)
	}
	return SendOK
}

// Receive pops the oldest word from the current process's ring. With an
// empty ring the current process blocks and the call fails; the next
// Send readies it again.
func (m *Manager) Receive() (uint32, RecvResult) {
	if m.current == nil {
		return 0, RecvErrNoProcess
	}
	p := m.current

	if p.msgCount == 0 {
		p.waitingForMsg = true
		m.Block(p.PID)
		return 0, RecvErrWouldBlock
	}

	word := p.msgs[0]
	for i := uint32(0); i < p.msgCount-1; i++ {
		p.msgs[i] = p.msgs[i+1]
	}
	p.msgCount--
	return word, RecvOK
}

// HasMessage reports whether a process has queued words.
func (m *Manager) HasMessage(pid uint32) bool {
	p := m.ByPID(pid)
	return p != nil && p.msgCount > 0
}
